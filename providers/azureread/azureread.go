// Package azureread adapts the Azure Computer Vision Read API to the
// provider port. Read is asynchronous: the image is submitted, then the
// operation is polled until it succeeds. The response carries word-level
// confidence only, so every digit inherits its enclosing word's score.
package azureread

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/ensemble"
	"github.com/firmas-hq/firmas/providers"
)

// ProviderName identifies this adapter in candidates and logs.
const ProviderName = "azure_read"

const (
	analyzePath     = "/vision/v3.2/read/analyze"
	defaultPollWait = 500 * time.Millisecond
	maxPolls        = 60
)

// Client calls the Read API with an endpoint + subscription key pair.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *providers.RateLimiter
	pollWait   time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimiter applies a request budget to every call.
func WithRateLimiter(rl *providers.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithPollInterval overrides the result-poll interval (tests use a short
// one).
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollWait = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Read client. Both the endpoint and the key are required.
func New(endpoint, apiKey string, opts ...Option) (*Client, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: azure endpoint and key", providers.ErrNoCredentials)
	}
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pollWait:   defaultPollWait,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name implements the provider port.
func (c *Client) Name() string { return ProviderName }

// Response tree types, mirroring the Read API JSON.

type readResult struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
}

type analyzeResult struct {
	ReadResults []pageResult `json:"readResults"`
}

type pageResult struct {
	Page  int    `json:"page"`
	Lines []line `json:"lines"`
}

type line struct {
	Text  string `json:"text"`
	Words []word `json:"words"`
}

type word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// analyze submits the image and polls the operation until it succeeds.
func (c *Client) analyze(ctx context.Context, image []byte) (*analyzeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+analyzePath, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azureread: submit: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("azureread: submit status %d", resp.StatusCode)
	}
	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return nil, fmt.Errorf("azureread: missing Operation-Location header")
	}

	for i := 0; i < maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollWait):
		}

		result, err := c.poll(ctx, opURL)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case "succeeded":
			if result.AnalyzeResult == nil {
				return &analyzeResult{}, nil
			}
			return result.AnalyzeResult, nil
		case "failed":
			return nil, fmt.Errorf("azureread: operation failed")
		}
		// notStarted / running: keep polling.
	}
	return nil, fmt.Errorf("azureread: operation did not finish after %d polls", maxPolls)
}

func (c *Client) poll(ctx context.Context, opURL string) (*readResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azureread: poll: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azureread: reading poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azureread: poll status %d: %s", resp.StatusCode, data)
	}

	var parsed readResult
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("azureread: decoding poll response: %w", err)
	}
	return &parsed, nil
}

// Extract implements the ensemble provider port: one candidate per line
// whose digits form a plausible cédula, in reading order.
func (c *Client) Extract(ctx context.Context, image []byte) ([]cedula.RawCandidate, error) {
	result, err := c.analyze(ctx, image)
	if err != nil {
		return nil, err
	}

	var candidates []cedula.RawCandidate
	for _, pg := range result.ReadResults {
		for _, ln := range pg.Lines {
			digits, conf := lineDigits(ln)
			ds, err := cedula.NewDigitString(digits)
			if err != nil {
				continue
			}
			candidates = append(candidates, cedula.RawCandidate{
				Digits:     ds,
				Confidence: conf,
				Provider:   ProviderName,
				Raw:        result,
			})
		}
	}
	return candidates, nil
}

// lineDigits concatenates the digits of a line's words, weighting the
// confidence by how many digits each word contributed.
func lineDigits(ln line) (string, cedula.Confidence) {
	var digits []byte
	var sum float64
	for _, w := range ln.Words {
		for i := 0; i < len(w.Text); i++ {
			if w.Text[i] >= '0' && w.Text[i] <= '9' {
				digits = append(digits, w.Text[i])
				sum += w.Confidence
			}
		}
	}
	if len(digits) == 0 {
		return "", 0
	}
	return string(digits), cedula.ClampConfidence(sum / float64(len(digits)))
}

// PerDigit implements the ensemble provider port. The Read tree only
// scores words, so every character inherits its word's confidence before
// alignment.
func (c *Client) PerDigit(_ context.Context, cand cedula.RawCandidate, target cedula.DigitString) (cedula.DigitConfidence, error) {
	result, ok := cand.Raw.(*analyzeResult)
	if !ok || result == nil {
		return ensemble.AlignDigits(target, nil, ProviderName, c.logger), nil
	}

	var flat []ensemble.CharConf
	for _, pg := range result.ReadResults {
		for _, ln := range pg.Lines {
			for _, w := range ln.Words {
				for _, r := range w.Text {
					flat = append(flat, ensemble.CharConf{Ch: r, Conf: cedula.ClampConfidence(w.Confidence)})
				}
			}
		}
	}
	return ensemble.AlignDigits(target, flat, ProviderName, c.logger), nil
}

// ReadText implements providers.TextReader by joining the recognized lines.
func (c *Client) ReadText(ctx context.Context, image []byte) (providers.TextResult, error) {
	result, err := c.analyze(ctx, image)
	if err != nil {
		return providers.TextResult{}, err
	}

	var lines []string
	var sum float64
	var n int
	for _, pg := range result.ReadResults {
		for _, ln := range pg.Lines {
			lines = append(lines, ln.Text)
			for _, w := range ln.Words {
				sum += w.Confidence
				n++
			}
		}
	}
	conf := cedula.Confidence(ensemble.FallbackConfidence)
	if n > 0 {
		conf = cedula.ClampConfidence(sum / float64(n))
	}
	return providers.TextResult{Text: strings.Join(lines, "\n"), Confidence: conf}, nil
}
