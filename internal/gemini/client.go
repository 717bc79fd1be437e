// Package gemini implements integration with Google's Gemini AI API.
// It turns prompt requests into generate-content calls and returns the reply text.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"github.com/edgard/linerelay/internal/config"
	"github.com/edgard/linerelay/internal/prompt"
)

// ImageLoader reads the image bytes referenced by a prompt segment.
type ImageLoader interface {
	Load(path string) ([]byte, error)
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client sends prompt requests to Gemini.
type Client struct {
	generate      generateFunc
	images        ImageLoader
	log           *slog.Logger
	contentConfig genai.GenerateContentConfig
	modelName     string
	timeout       time.Duration
	maxRetries    int
	retryDelay    time.Duration
}

// NewClient creates a new Gemini client with the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, images ImageLoader, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models.GenerateContent, cfg, images, log)
	c.log.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return c, nil
}

func newClient(generate generateFunc, cfg config.GeminiConfig, images ImageLoader, log *slog.Logger) *Client {
	temperature := cfg.Temperature
	return &Client{
		generate: generate,
		images:   images,
		log:      log.With("component", "gemini_client"),
		contentConfig: genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			SafetySettings: []*genai.SafetySetting{
				{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
			},
		},
		modelName:  cfg.ModelName,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Generate sends req to the model and returns the reply text.
func (c *Client) Generate(ctx context.Context, req prompt.Request) (string, error) {
	contents, err := c.buildContents(req)
	if err != nil {
		return "", err
	}

	cfg := c.contentConfig
	if req.Instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	c.log.DebugContext(ctx, "Generating content", "template", req.Template, "segments", len(req.Segments))

	resp, err := c.generateWithRetries(ctx, contents, &cfg)
	if err != nil {
		return "", err
	}

	return c.extractText(ctx, req.Template, resp)
}

func (c *Client) buildContents(req prompt.Request) ([]*genai.Content, error) {
	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrInvalidRequest)
	}

	parts := make([]*genai.Part, 0, len(req.Segments))
	for _, seg := range req.Segments {
		switch seg.Kind {
		case prompt.SegmentText:
			parts = append(parts, genai.NewPartFromText(seg.Text))
		case prompt.SegmentImage:
			if c.images == nil {
				return nil, fmt.Errorf("%w: no image loader configured", ErrInvalidRequest)
			}
			data, err := c.images.Load(seg.ImagePath)
			if err != nil {
				return nil, fmt.Errorf("%w: load image %s: %w", ErrInvalidRequest, seg.ImagePath, err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, mimetype.Detect(data).String()))
		default:
			return nil, fmt.Errorf("%w: unknown segment kind %v", ErrInvalidRequest, seg.Kind)
		}
	}

	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

func (c *Client) generateWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.attempt(ctx, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(ctx, err) || attempt == c.maxRetries {
			c.log.ErrorContext(ctx, "Gemini API call failed", "attempt", attempt+1, "error", err)
			return nil, err
		}

		c.log.WarnContext(ctx, "Retrying Gemini API call due to transient error", "attempt", attempt+1, "delay", c.retryDelay, "error", err)

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("gemini retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// retryable reports whether a failed attempt may be repeated: a transient
// provider error, or an attempt timeout while the caller is still waiting.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var providerErr *ProviderError
	return errors.As(err, &providerErr) && providerErr.Retryable()
}

func (c *Client) attempt(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.generate(attemptCtx, c.modelName, contents, cfg)
	if err == nil {
		return resp, nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return nil, &ProviderError{Code: apiErr.Code, Message: apiErr.Message, Err: err}
	}

	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("gemini request aborted: %w", ctx.Err())
	}

	return nil, &ProviderError{Message: err.Error(), Err: err}
}

func (c *Client) extractText(ctx context.Context, tmpl prompt.Template, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.WarnContext(ctx, "Gemini request blocked", "template", tmpl, "reason", reason)
		return "", fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = string(resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "template", tmpl, "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return "", fmt.Errorf("%w: finish reason %s", ErrBlocked, finishReason)
		}
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
