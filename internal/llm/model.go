package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported providers.
const (
	ProviderGoogleAI  = "googleai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config selects and authenticates the completion provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
}

// Result is the outcome of one completion call. Exactly one of Text or Err is meaningful.
type Result struct {
	Text string
	Err  error
}

// Failed reports whether the provider call did not produce text.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Reply is the text handed back to the user: the generated text, or a
// descriptive error line when the call failed.
func (r Result) Reply() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Text
}

// Client wraps a langchaingo model for single-prompt generation.
type Client struct {
	model  llms.Model
	name   string
	logger *slog.Logger
}

// NewModel creates the provider-specific langchaingo model.
func NewModel(ctx context.Context, cfg Config) (llms.Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: API key required")
	}

	switch cfg.Provider {
	case ProviderGoogleAI, "":
		m, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("llm: create googleai model: %w", err)
		}
		return m, nil

	case ProviderOpenAI:
		m, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("llm: create openai model: %w", err)
		}
		return m, nil

	case ProviderAnthropic:
		m, err := anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("llm: create anthropic model: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("llm: unsupported provider: %s", cfg.Provider)
	}
}

// NewClient wraps model. name is only used for logging.
func NewClient(model llms.Model, name string, logger *slog.Logger) (*Client, error) {
	if model == nil {
		return nil, errors.New("llm: model must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{model: model, name: name, logger: logger}, nil
}

// Generate sends prompt to the model. Provider failures, including panics
// inside the SDK, come back as a failed Result instead of an error.
func (c *Client) Generate(ctx context.Context, prompt string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("llm: provider panic: %v", r)}
			c.logger.Error("completion panicked", "model", c.name, "panic", r)
		}
	}()

	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		c.logger.Warn("completion failed", "model", c.name, "error", err)
		return Result{Err: err}
	}
	return Result{Text: text}
}
