// Package openai implements the decision oracle on an OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	defaultTimeout = 90 * time.Second
)

// Config configures an Oracle.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Temperature is sent when set.
	Temperature *float64
	// Prompts are system instructions keyed by agent name.
	Prompts map[string]string
	// SpeechModel and Voice configure the Speaker.
	SpeechModel string
	Voice       string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Oracle asks a chat model for the next decision.
// The client never retries; the engine turns a failed decision into an
// error turn and the user decides whether to ask again.
type Oracle struct {
	client      sdk.Client
	model       string
	baseURL     string
	temperature *float64
	prompts     map[string]string
	logger      *slog.Logger
}

var _ ports.Oracle = (*Oracle)(nil)

// New validates cfg and returns an Oracle.
func New(cfg Config) (*Oracle, error) {
	client, baseURL, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Oracle{
		client:      client,
		model:       model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		prompts:     cfg.Prompts,
		logger:      loggerOrNop(cfg.Logger),
	}, nil
}

func newClient(cfg Config) (sdk.Client, string, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return sdk.Client{}, "", fmt.Errorf("openai: api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return client, baseURL, nil
}

func loggerOrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// Decide implements ports.Oracle.
func (o *Oracle) Decide(ctx context.Context, req ports.OracleRequest) (ports.Decision, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    o.model,
		Messages: o.messages(req),
	}
	if len(req.Capabilities) > 0 {
		params.Tools = toTools(req.Capabilities)
	}
	if o.temperature != nil {
		params.Temperature = sdk.Float(*o.temperature)
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ports.Decision{}, wrapError(err)
	}
	if len(completion.Choices) == 0 {
		return ports.Decision{}, fmt.Errorf("openai: response has no choices")
	}
	o.logger.DebugContext(ctx, "Chat completion",
		"agent", req.Agent,
		"model", o.model,
		"messages", len(params.Messages),
		"duration", time.Since(start),
		"total_tokens", completion.Usage.TotalTokens,
	)
	return toDecision(completion.Choices[0].Message)
}

// messages prepends the agent's system prompt and the injected context to the
// normalized conversation.
func (o *Oracle) messages(req ports.OracleRequest) []sdk.ChatCompletionMessageParamUnion {
	var system []string
	if p := strings.TrimSpace(o.prompts[req.Agent]); p != "" {
		system = append(system, p)
	}
	if c := strings.TrimSpace(req.Context); c != "" {
		system = append(system, c)
	}

	var out []sdk.ChatCompletionMessageParamUnion
	if len(system) > 0 {
		out = append(out, sdk.SystemMessage(strings.Join(system, "\n\n")))
	}
	return append(out, toMessages(req.Turns)...)
}

func wrapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai: status %d: %s", apiErr.StatusCode, apiMessage(apiErr))
	}
	return fmt.Errorf("openai: %w", err)
}

func apiMessage(err *sdk.Error) string {
	if err.Message != "" {
		return err.Message
	}
	return http.StatusText(err.StatusCode)
}

func toDecision(m sdk.ChatCompletionMessage) (ports.Decision, error) {
	d := ports.Decision{Text: m.Content}
	for _, call := range m.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return ports.Decision{}, fmt.Errorf("openai: arguments of %s: %w", call.Function.Name, err)
			}
		}
		d.Invocations = append(d.Invocations, domain.Invocation{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: args,
		})
	}
	return d, nil
}
