// Package providers defines the cloud OCR port shared by the ensemble
// driver, the handwritten-row extractor, and the web-form reader, plus the
// request rate limiting applied to every provider call. Concrete adapters
// live in the subpackages googlevision, azureread, and openaivision.
package providers

import (
	"context"
	"errors"

	"github.com/firmas-hq/firmas/core/cedula"
)

// ErrNoCredentials is returned by adapter constructors when the required
// API credential is absent.
var ErrNoCredentials = errors.New("providers: missing API credentials")

// TextResult is one region's plain-text OCR read.
type TextResult struct {
	Text       string
	Confidence cedula.Confidence
}

// TextReader OCRs a small image region into plain text. The handwritten-row
// extractor uses it per band and the web-form reader per rendered field.
type TextReader interface {
	ReadText(ctx context.Context, image []byte) (TextResult, error)
}
