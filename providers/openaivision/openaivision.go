// Package openaivision adapts an OpenAI-compatible vision chat model to the
// provider port. It is the fallback third provider for single-provider
// runs: chat models report no per-symbol confidence, so every digit carries
// a flat score and the adapter is never paired into the two-provider
// ensemble as a confidence source of record.
package openaivision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/ensemble"
	"github.com/firmas-hq/firmas/providers"
)

// ProviderName identifies this adapter in candidates and logs.
const ProviderName = "openai_vision"

// flatConfidence is reported for every digit; chat models do not expose
// recognition confidence.
const flatConfidence = 0.90

const extractPrompt = "Transcribe every handwritten number in this image. " +
	"Output one number per line, digits only, top to bottom. " +
	"Output nothing else."

const readPrompt = "Transcribe the text in this image exactly. " +
	"Output only the transcription."

// Client calls a vision-capable chat model.
type Client struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*config)

type config struct {
	model   string
	apiKey  string
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// WithModel sets the model name (default: "gpt-4o").
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithAPIKey sets the API key. If empty, the SDK falls back to
// OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithBaseURL sets a custom base URL, enabling any OpenAI-compatible
// endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New creates a vision OCR client.
func New(opts ...Option) *Client {
	cfg := config{model: "gpt-4o", logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}

	var clientOpts []option.RequestOption
	if cfg.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &Client{
		client: openai.NewClient(clientOpts...),
		model:  cfg.model,
		logger: cfg.logger,
	}
}

// Name implements the provider port.
func (c *Client) Name() string { return ProviderName }

// complete sends one prompt + image message and returns the text reply.
func (c *Client) complete(ctx context.Context, prompt string, image []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openaivision: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openaivision: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// Extract implements the ensemble provider port: one candidate per reply
// line carrying a plausible digit run.
func (c *Client) Extract(ctx context.Context, image []byte) ([]cedula.RawCandidate, error) {
	reply, err := c.complete(ctx, extractPrompt, image)
	if err != nil {
		return nil, err
	}

	var candidates []cedula.RawCandidate
	for _, ln := range strings.Split(reply, "\n") {
		digits := digitsOnly(ln)
		ds, err := cedula.NewDigitString(digits)
		if err != nil {
			continue
		}
		candidates = append(candidates, cedula.RawCandidate{
			Digits:     ds,
			Confidence: flatConfidence,
			Provider:   ProviderName,
			Raw:        reply,
		})
	}
	return candidates, nil
}

// PerDigit implements the ensemble provider port with the flat confidence
// spread over the reply's digits.
func (c *Client) PerDigit(_ context.Context, cand cedula.RawCandidate, target cedula.DigitString) (cedula.DigitConfidence, error) {
	reply, _ := cand.Raw.(string)
	var flat []ensemble.CharConf
	for _, r := range reply {
		flat = append(flat, ensemble.CharConf{Ch: r, Conf: flatConfidence})
	}
	return ensemble.AlignDigits(target, flat, ProviderName, c.logger), nil
}

// ReadText implements providers.TextReader.
func (c *Client) ReadText(ctx context.Context, image []byte) (providers.TextResult, error) {
	reply, err := c.complete(ctx, readPrompt, image)
	if err != nil {
		return providers.TextResult{}, err
	}
	return providers.TextResult{Text: strings.TrimSpace(reply), Confidence: flatConfidence}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
