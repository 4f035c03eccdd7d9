// File: internal/oracle/gemini.go
// Package oracle implements the perception oracle against the Gemini API.
package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/config"
)

// GeminiOracle implements schemas.PerceptionOracle on top of the Gemini API.
// Text-only queries go to the planner model; queries carrying a screenshot go
// to the vision model. A shared rate limiter paces all calls so a refinement
// loop cannot starve the planner of quota.
type GeminiOracle struct {
	client  *genai.Client
	cfg     config.OracleConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ schemas.PerceptionOracle = (*GeminiOracle)(nil)

// NewGeminiOracle initializes the client and validates credentials are present.
func NewGeminiOracle(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set SCREENPILOT_ORACLE_API_KEY or GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	qpm := cfg.QueriesPerMinute
	if qpm <= 0 {
		qpm = 30
	}

	return &GeminiOracle{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(qpm)/60.0), 1),
		logger:  logger.Named("oracle.gemini"),
	}, nil
}

// Query sends a text-only prompt to the planner model.
func (o *GeminiOracle) Query(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	return o.generate(ctx, o.cfg.PlannerModel, parts)
}

// QueryImage sends a prompt plus a screenshot file to the vision model.
func (o *GeminiOracle) QueryImage(ctx context.Context, prompt string, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}
	return o.QueryImageBytes(ctx, prompt, data)
}

// QueryImageBytes sends a prompt plus an in-memory PNG to the vision model.
func (o *GeminiOracle) QueryImageBytes(ctx context.Context, prompt string, imageData []byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(imageData, "image/png"),
	}
	return o.generate(ctx, o.cfg.VisionModel, parts)
}

// generate performs one paced, retried GenerateContent call and returns the
// reply text.
func (o *GeminiOracle) generate(ctx context.Context, model string, parts []*genai.Part) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter interrupted: %w", err)
	}

	callCtx := ctx
	if o.cfg.APITimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.APITimeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(o.cfg.Temperature)),
	}
	if o.cfg.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(o.cfg.MaxTokens)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = o.cfg.MaxRetryElapsed
	b.MaxInterval = 30 * time.Second

	var responseText string

	operation := func() error {
		startTime := time.Now()
		resp, err := o.client.Models.GenerateContent(callCtx, model, contents, genConfig)
		duration := time.Since(startTime)

		if err != nil {
			if callCtx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("gemini request aborted: %w", err))
			}
			o.logger.Warn("Gemini request failed, retrying...",
				zap.String("model", model), zap.Error(err))
			return fmt.Errorf("gemini request failed: %w", err)
		}

		text := resp.Text()
		if text == "" {
			// An empty candidate set is usually a transient server hiccup; a
			// safety block is not.
			if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
				return backoff.Permanent(fmt.Errorf("gemini blocked the request (safety)"))
			}
			return fmt.Errorf("gemini returned an empty reply")
		}

		o.logger.Debug("Oracle query complete",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Int("reply_chars", len(text)),
		)

		responseText = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, callCtx)); err != nil {
		return "", err
	}
	return responseText, nil
}
