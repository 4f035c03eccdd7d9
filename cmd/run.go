// File: cmd/run.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/dispatch"
	"github.com/xkilldash9x/screenpilot/internal/geometry"
	"github.com/xkilldash9x/screenpilot/internal/memory"
	"github.com/xkilldash9x/screenpilot/internal/observability"
	"github.com/xkilldash9x/screenpilot/internal/oracle"
	"github.com/xkilldash9x/screenpilot/internal/planner"
	"github.com/xkilldash9x/screenpilot/internal/screen"
	"github.com/xkilldash9x/screenpilot/internal/transport"
	"github.com/xkilldash9x/screenpilot/internal/vision"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Execute a natural-language task on this machine",
	Long: `Run plans a short sequence of actions toward the given goal, executes
them, and replans from screenshots until the goal is met or a budget runs
out. Example:

  screenpilot run "open spotify and play the Discover Weekly playlist"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goal := strings.Join(args, " ")
		ctx := cmd.Context()
		logger := observability.GetLogger()

		perception, err := oracle.NewGeminiOracle(ctx, cfg.Oracle, logger)
		if err != nil {
			return err
		}

		screens, err := screen.NewManager(cfg.Screen, logger)
		if err != nil {
			return err
		}

		browser := transport.NewChromeTransport(cfg.Browser, logger)
		defer func() {
			if err := browser.Close(); err != nil {
				logger.Warn("Browser teardown failed", zap.Error(err))
			}
		}()

		annotate := vision.DefaultAnnotateOptions()
		annotate.CropRadius = cfg.Engine.CropRadius
		annotate.ZoomFactor = cfg.Engine.ZoomFactor

		tracker := memory.NewActionTracker(logger)
		locator := vision.NewLocator(perception, cfg.Engine.RefineIterations, annotate, logger)
		dispatcher := dispatch.NewDispatcher(
			browser, locator, screens, screens,
			geometry.NewResolver(logger), tracker,
			cfg.Engine, cfg.Screen, logger,
		)
		loop := planner.NewPlanner(
			perception, dispatcher, screens, tracker,
			cfg.Engine, cfg.Screen.DisplayIndex, logger,
		)

		result := loop.Run(ctx, goal)

		fmt.Printf("\nState:   %s\nReplans: %d\nSummary: %s\n", result.State, result.Replans, result.Summary)
		if result.State != schemas.StateDone {
			return fmt.Errorf("task ended in state %s", result.State)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
