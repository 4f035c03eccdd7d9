// File: cmd/displays.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/screenpilot/internal/observability"
	"github.com/xkilldash9x/screenpilot/internal/screen"
)

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List the detected displays",
	RunE: func(cmd *cobra.Command, args []string) error {
		screens, err := screen.NewManager(cfg.Screen, observability.GetLogger())
		if err != nil {
			return err
		}

		displays := screens.Displays()
		if len(displays) == 0 {
			return fmt.Errorf("no displays detected")
		}
		for _, d := range displays {
			marker := " "
			if d.ID == cfg.Screen.DisplayIndex {
				marker = "*"
			}
			fmt.Printf("%s display %d: %dx%d at (%d, %d)\n", marker, d.ID, d.Width, d.Height, d.X, d.Y)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(displaysCmd)
}
