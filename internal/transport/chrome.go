// File: internal/transport/chrome.go
// Package transport provides the structured browser-automation channel. When
// a step can be expressed as a DOM operation it goes through here; pixel-level
// interaction is the fallback, not the default.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/config"
)

// Tool names accepted by Invoke. They mirror the structured action tags so a
// plan step dispatches with its own action name.
const (
	ToolNavigate   = "NAVIGATE"
	ToolClick      = "STRUCTURED_CLICK"
	ToolScript     = "EXECUTE_SCRIPT"
	ToolType       = "STRUCTURED_TYPE"
	ToolGetContent = "GET_CONTENT"
	ToolScreenshot = "SCREENSHOT"
)

// ChromeTransport implements schemas.AutomationTransport over the Chrome
// DevTools Protocol. The browser is started (or attached) lazily on first use
// and owned explicitly by this handle; Close tears it down.
type ChromeTransport struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu         sync.Mutex
	browserCtx context.Context
	cancels    []context.CancelFunc
}

var _ schemas.AutomationTransport = (*ChromeTransport)(nil)

// NewChromeTransport creates an unconnected transport. No browser process is
// spawned until the first Invoke.
func NewChromeTransport(cfg config.BrowserConfig, logger *zap.Logger) *ChromeTransport {
	return &ChromeTransport{
		cfg:    cfg,
		logger: logger.Named("transport.chrome"),
	}
}

// ensureBrowser starts or attaches to Chrome on first use.
func (t *ChromeTransport) ensureBrowser(ctx context.Context) (context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browserCtx != nil {
		if t.browserCtx.Err() != nil {
			return nil, fmt.Errorf("browser session has terminated: %w", t.browserCtx.Err())
		}
		return t.browserCtx, nil
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc

	if t.cfg.AttachURL != "" {
		t.logger.Info("Attaching to running browser", zap.String("url", t.cfg.AttachURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), t.cfg.AttachURL)
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts, chromedp.Flag("headless", t.cfg.Headless))
		for _, arg := range t.cfg.Args {
			name, value, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
			opts = append(opts, chromedp.Flag(name, value))
		}
		t.logger.Info("Launching browser", zap.Bool("headless", t.cfg.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	t.cancels = []context.CancelFunc{browserCancel, allocCancel}

	// Force the browser to actually start so attach failures surface here,
	// not inside the first tool call.
	if err := chromedp.Run(browserCtx); err != nil {
		t.teardownLocked()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	t.browserCtx = browserCtx
	return browserCtx, nil
}

// Invoke executes one named tool. The returned string is the tool's textual
// result (page content, script output, screenshot path); errors are returned
// verbatim so the dispatcher can decide between retry, fallback and replan.
func (t *ChromeTransport) Invoke(ctx context.Context, tool string, args map[string]string) (string, error) {
	switch tool {
	case ToolNavigate:
		url := args["url"]
		if url == "" {
			return "", fmt.Errorf("NAVIGATE requires a url argument")
		}
		err := t.run(ctx, t.cfg.NavigationTimeout,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("navigation to %s failed: %w", url, err)
		}
		return fmt.Sprintf("navigated to %s", url), nil

	case ToolClick:
		selector := args["selector"]
		if selector == "" {
			return "", fmt.Errorf("STRUCTURED_CLICK requires a selector argument")
		}
		if err := t.run(ctx, t.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("click on %q failed: %w", selector, err)
		}
		return fmt.Sprintf("clicked %s", selector), nil

	case ToolType:
		selector := args["selector"]
		if selector == "" {
			return "", fmt.Errorf("STRUCTURED_TYPE requires a selector argument")
		}
		err := t.run(ctx, t.cfg.ActionTimeout,
			chromedp.Click(selector, chromedp.ByQuery),
			chromedp.SendKeys(selector, args["text"], chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("typing into %q failed: %w", selector, err)
		}
		return fmt.Sprintf("typed into %s", selector), nil

	case ToolScript:
		code := args["code"]
		if code == "" {
			return "", fmt.Errorf("EXECUTE_SCRIPT requires a code argument")
		}
		var result json.RawMessage
		if err := t.run(ctx, t.cfg.ActionTimeout, chromedp.Evaluate(code, &result)); err != nil {
			return "", fmt.Errorf("script evaluation failed: %w", err)
		}
		return string(result), nil

	case ToolGetContent:
		var content string
		if err := t.run(ctx, t.cfg.ActionTimeout, chromedp.Text("body", &content, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("content extraction failed: %w", err)
		}
		return content, nil

	case ToolScreenshot:
		path := args["path"]
		if path == "" {
			return "", fmt.Errorf("SCREENSHOT requires a path argument")
		}
		var buf []byte
		capture := chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
			return err
		})
		if err := t.run(ctx, t.cfg.ActionTimeout, capture); err != nil {
			return "", fmt.Errorf("screenshot failed: %w", err)
		}
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			return "", fmt.Errorf("failed to write screenshot: %w", err)
		}
		return path, nil

	default:
		return "", fmt.Errorf("unknown automation tool %q", tool)
	}
}

// run executes chromedp actions on the browser context with a per-call
// timeout, honoring the caller's cancellation.
func (t *ChromeTransport) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	browserCtx, err := t.ensureBrowser(ctx)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	// chromedp actions must run on the browser context; propagate the
	// caller's cancellation into it.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Close tears down the browser session. Safe to call multiple times.
func (t *ChromeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.teardownLocked()
	return nil
}

func (t *ChromeTransport) teardownLocked() {
	for _, cancel := range t.cancels {
		cancel()
	}
	t.cancels = nil
	t.browserCtx = nil
}
