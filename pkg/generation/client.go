package generation

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/config"
	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
)

// Client calls a chat-completions endpoint to fulfil generation
// requests. It rate-limits itself and bounds every call with the
// configured timeout.
type Client struct {
	cfg     config.GenerationConfig
	opts    []option.RequestOption
	limiter *rate.Limiter
}

func NewClient(cfg config.GenerationConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, bferrors.New(bferrors.ErrCodeConfigInvalid, "generation api key missing")
	}
	if cfg.Model == "" {
		return nil, bferrors.New(bferrors.ErrCodeConfigInvalid, "generation model missing")
	}
	// Retries are the caller's policy; the SDK must not add its own.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		cfg:     cfg,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	prompt := buildPrompt(req)
	if prompt == "" {
		return "", bferrors.New(bferrors.ErrCodeInvalidInput, "unknown prompt kind").
			WithContext("kind", string(req.Kind))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", bferrors.Wrap(err, bferrors.ErrCodeGenerationRateLimit, "rate limiter wait interrupted").
			WithRetryable(true)
	}

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	client := openai.NewClient(c.opts...)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}

	resp, err := client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return "", classifyCallError(err, req.Kind)
	}
	if len(resp.Choices) == 0 {
		return "", bferrors.New(bferrors.ErrCodeGenerationMalformed, "model returned no choices").
			WithContext("kind", string(req.Kind))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", bferrors.New(bferrors.ErrCodeGenerationMalformed, "model returned empty content").
			WithContext("kind", string(req.Kind))
	}
	return text, nil
}

// classifyCallError maps a transport or API failure onto the error
// taxonomy so callers can decide whether to retry.
func classifyCallError(err error, kind PromptKind) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return bferrors.Wrap(err, bferrors.ErrCodeGenerationTimeout, "generation call timed out").
			WithContext("kind", string(kind)).
			WithRetryable(true)
	}
	if errors.Is(err, context.Canceled) {
		return bferrors.Wrap(err, bferrors.ErrCodeGenerationUpstream, "generation call canceled").
			WithContext("kind", string(kind))
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return bferrors.Wrap(err, bferrors.ErrCodeGenerationRateLimit, "model endpoint rate limited the call").
				WithContext("kind", string(kind)).
				WithRetryable(true)
		case apierr.StatusCode >= 500:
			return bferrors.Wrap(err, bferrors.ErrCodeGenerationUpstream, "model endpoint failed").
				WithContext("kind", string(kind)).
				WithContext("status", apierr.StatusCode).
				WithRetryable(true)
		default:
			return bferrors.Wrap(err, bferrors.ErrCodeGenerationUpstream, "model endpoint rejected the call").
				WithContext("kind", string(kind)).
				WithContext("status", apierr.StatusCode)
		}
	}

	// Network level failures with no HTTP response.
	return bferrors.Wrap(err, bferrors.ErrCodeGenerationUpstream, "generation call failed").
		WithContext("kind", string(kind)).
		WithRetryable(true)
}
