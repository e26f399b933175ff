// Package webform reads the four name fields the target application
// renders for a typed cédula. Each configured field region is captured and
// OCRed independently; a response with all four fields blank encodes
// "person not found".
package webform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/providers"
	"github.com/firmas-hq/firmas/screenio"
)

// Regions maps the rendered form fields to their screen rectangles, from
// configuration.
type Regions struct {
	FirstName     screenio.Region
	MiddleName    screenio.Region
	FirstSurname  screenio.Region
	SecondSurname screenio.Region
}

// Reader captures and OCRs the rendered form fields.
type Reader struct {
	capturer screenio.Capturer
	ocr      providers.TextReader
	regions  Regions
	logger   *slog.Logger
}

// NewReader returns a web-form reader over the given capture backend and
// OCR reader.
func NewReader(capturer screenio.Capturer, ocr providers.TextReader, regions Regions, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{capturer: capturer, ocr: ocr, regions: regions, logger: logger}
}

// ReadFields captures each field region and OCRs it.
func (r *Reader) ReadFields(ctx context.Context) (cedula.FormData, error) {
	var form cedula.FormData
	for _, f := range []struct {
		name   string
		region screenio.Region
		dst    *string
	}{
		{cedula.FieldFirstName, r.regions.FirstName, &form.FirstName},
		{cedula.FieldMiddleName, r.regions.MiddleName, &form.MiddleName},
		{cedula.FieldFirstSurname, r.regions.FirstSurname, &form.FirstSurname},
		{cedula.FieldSecondSurname, r.regions.SecondSurname, &form.SecondSurname},
	} {
		text, err := r.readRegion(ctx, f.region)
		if err != nil {
			return cedula.FormData{}, fmt.Errorf("webform: field %s: %w", f.name, err)
		}
		*f.dst = text
	}
	return form, nil
}

func (r *Reader) readRegion(ctx context.Context, region screenio.Region) (string, error) {
	img, err := r.capturer.Capture(ctx, region)
	if err != nil {
		return "", err
	}
	data, err := screenio.EncodePNG(img)
	if err != nil {
		return "", err
	}
	res, err := r.ocr.ReadText(ctx, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}
