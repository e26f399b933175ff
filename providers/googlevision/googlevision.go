// Package googlevision adapts the Google Cloud Vision REST API to the
// provider port. Document text detection returns a page→block→paragraph→
// word→symbol tree with per-symbol confidence, which makes this the
// primary source of per-digit scores for the ensemble.
package googlevision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/ensemble"
	"github.com/firmas-hq/firmas/providers"
)

// ProviderName identifies this adapter in candidates and logs.
const ProviderName = "google_vision"

const defaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// Client calls the Vision API over REST with an API key.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *providers.RateLimiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint (used by tests and regional
// endpoints).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimiter applies a request budget to every call.
func WithRateLimiter(rl *providers.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Vision client. The API key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: google vision api key", providers.ErrNoCredentials)
	}
	c := &Client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name implements the provider port.
func (c *Client) Name() string { return ProviderName }

// Response tree types, mirroring the Vision API JSON.

type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *fullTextAnnotation `json:"fullTextAnnotation"`
		Error              *apiError           `json:"error"`
	} `json:"responses"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type fullTextAnnotation struct {
	Pages []page `json:"pages"`
	Text  string `json:"text"`
}

type page struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Paragraphs []paragraph `json:"paragraphs"`
}

type paragraph struct {
	Words []word `json:"words"`
}

type word struct {
	Symbols    []symbol `json:"symbols"`
	Confidence float64  `json:"confidence"`
}

type symbol struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// annotate posts the image and returns the first response.
func (c *Client) annotate(ctx context.Context, image []byte) (*fullTextAnnotation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"requests": []map[string]any{{
			"image":    map[string]string{"content": base64.StdEncoding.EncodeToString(image)},
			"features": []map[string]string{{"type": "DOCUMENT_TEXT_DETECTION"}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("googlevision: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("googlevision: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("googlevision: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("googlevision: status %d: %s", resp.StatusCode, data)
	}

	var parsed annotateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("googlevision: decoding response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return &fullTextAnnotation{}, nil
	}
	first := parsed.Responses[0]
	if first.Error != nil {
		return nil, fmt.Errorf("googlevision: api error %d: %s", first.Error.Code, first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		return &fullTextAnnotation{}, nil
	}
	return first.FullTextAnnotation, nil
}

// Extract implements the ensemble provider port: one candidate per
// paragraph whose digits form a plausible cédula, ordered as the tree
// orders them (top to bottom).
func (c *Client) Extract(ctx context.Context, image []byte) ([]cedula.RawCandidate, error) {
	ann, err := c.annotate(ctx, image)
	if err != nil {
		return nil, err
	}

	var candidates []cedula.RawCandidate
	for _, pg := range ann.Pages {
		for _, bl := range pg.Blocks {
			for _, pa := range bl.Paragraphs {
				digits, conf := paragraphDigits(pa)
				ds, err := cedula.NewDigitString(digits)
				if err != nil {
					continue
				}
				candidates = append(candidates, cedula.RawCandidate{
					Digits:     ds,
					Confidence: conf,
					Provider:   ProviderName,
					Raw:        ann,
				})
			}
		}
	}
	return candidates, nil
}

// paragraphDigits concatenates the digit symbols of a paragraph and
// averages their confidences.
func paragraphDigits(pa paragraph) (string, cedula.Confidence) {
	var digits []byte
	var sum float64
	for _, w := range pa.Words {
		for _, s := range w.Symbols {
			if len(s.Text) == 1 && s.Text[0] >= '0' && s.Text[0] <= '9' {
				digits = append(digits, s.Text[0])
				sum += s.Confidence
			}
		}
	}
	if len(digits) == 0 {
		return "", 0
	}
	return string(digits), cedula.ClampConfidence(sum / float64(len(digits)))
}

// PerDigit implements the ensemble provider port by flattening the symbol
// tree and aligning confidences to the target digits.
func (c *Client) PerDigit(_ context.Context, cand cedula.RawCandidate, target cedula.DigitString) (cedula.DigitConfidence, error) {
	ann, ok := cand.Raw.(*fullTextAnnotation)
	if !ok || ann == nil {
		return ensemble.AlignDigits(target, nil, ProviderName, c.logger), nil
	}

	var flat []ensemble.CharConf
	for _, pg := range ann.Pages {
		for _, bl := range pg.Blocks {
			for _, pa := range bl.Paragraphs {
				for _, w := range pa.Words {
					for _, s := range w.Symbols {
						for _, r := range s.Text {
							flat = append(flat, ensemble.CharConf{Ch: r, Conf: cedula.ClampConfidence(s.Confidence)})
						}
					}
				}
			}
		}
	}
	return ensemble.AlignDigits(target, flat, ProviderName, c.logger), nil
}

// ReadText implements providers.TextReader over the full annotation text.
func (c *Client) ReadText(ctx context.Context, image []byte) (providers.TextResult, error) {
	ann, err := c.annotate(ctx, image)
	if err != nil {
		return providers.TextResult{}, err
	}

	var sum float64
	var n int
	for _, pg := range ann.Pages {
		for _, bl := range pg.Blocks {
			for _, pa := range bl.Paragraphs {
				for _, w := range pa.Words {
					sum += w.Confidence
					n++
				}
			}
		}
	}
	conf := cedula.Confidence(ensemble.FallbackConfidence)
	if n > 0 {
		conf = cedula.ClampConfidence(sum / float64(n))
	}
	return providers.TextResult{Text: ann.Text, Confidence: conf}, nil
}
