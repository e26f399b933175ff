// Package rows extracts handwritten rows from a captured form image. The
// image is divided into the expected number of horizontal bands; each band
// is split at the configured boundary into a names sub-region (left) and a
// cédula sub-region (right), and each side is OCRed independently. A band
// is empty when both sides are blank after normalization.
package rows

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/textmatch"
	"github.com/firmas-hq/firmas/providers"
	"github.com/firmas-hq/firmas/screenio"
)

// DefaultSplit is the horizontal boundary between the names and cédula
// sub-regions, as a fraction of the band width.
const DefaultSplit = 0.60

// Extractor implements the handwritten-row port over a plain-text OCR
// reader.
type Extractor struct {
	reader providers.TextReader
	split  float64
	logger *slog.Logger
}

// NewExtractor returns a row extractor. A non-positive split falls back to
// DefaultSplit.
func NewExtractor(reader providers.TextReader, split float64, logger *slog.Logger) *Extractor {
	if split <= 0 || split >= 1 {
		split = DefaultSplit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{reader: reader, split: split, logger: logger}
}

// ExtractRows divides the image into expectedRows bands and OCRs each.
func (e *Extractor) ExtractRows(ctx context.Context, imageData []byte, expectedRows int) ([]cedula.RowData, error) {
	if expectedRows <= 0 {
		return nil, fmt.Errorf("rows: expected rows must be positive, got %d", expectedRows)
	}
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("rows: decoding form image: %w", err)
	}

	b := img.Bounds()
	bandHeight := b.Dy() / expectedRows
	if bandHeight == 0 {
		return nil, fmt.Errorf("rows: image height %d too small for %d rows", b.Dy(), expectedRows)
	}
	splitX := b.Min.X + int(float64(b.Dx())*e.split)

	out := make([]cedula.RowData, 0, expectedRows)
	for i := 0; i < expectedRows; i++ {
		top := b.Min.Y + i*bandHeight
		bottom := top + bandHeight
		if i == expectedRows-1 {
			bottom = b.Max.Y
		}

		left := imaging.Crop(img, image.Rect(b.Min.X, top, splitX, bottom))
		right := imaging.Crop(img, image.Rect(splitX, top, b.Max.X, bottom))

		row, err := e.readBand(ctx, i, left, right)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (e *Extractor) readBand(ctx context.Context, index int, left, right image.Image) (cedula.RowData, error) {
	leftPNG, err := screenio.EncodePNG(left)
	if err != nil {
		return cedula.RowData{}, err
	}
	rightPNG, err := screenio.EncodePNG(right)
	if err != nil {
		return cedula.RowData{}, err
	}

	names, err := e.reader.ReadText(ctx, leftPNG)
	if err != nil {
		return cedula.RowData{}, fmt.Errorf("rows: band %d names: %w", index, err)
	}
	cedText, err := e.reader.ReadText(ctx, rightPNG)
	if err != nil {
		return cedula.RowData{}, fmt.Errorf("rows: band %d cedula: %w", index, err)
	}

	digits := digitsOnly(cedText.Text)
	row := cedula.RowData{
		Index:            index,
		Names:            strings.TrimSpace(names.Text),
		NamesConfidence:  names.Confidence,
		CedulaConfidence: cedText.Confidence,
	}
	if ds, err := cedula.NewDigitString(digits); err == nil {
		row.Cedula = ds
	} else if digits != "" {
		e.logger.Warn("band digits outside cedula bounds", "band", index, "digits", digits)
	}
	row.Empty = textmatch.Normalize(row.Names) == "" && digits == ""
	return row, nil
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

// CedulaColumn crops the cédula column (everything right of the split
// boundary) out of the full form image for the digit-ensemble pass.
func CedulaColumn(imageData []byte, split float64) ([]byte, error) {
	if split <= 0 || split >= 1 {
		split = DefaultSplit
	}
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("rows: decoding form image: %w", err)
	}
	b := img.Bounds()
	splitX := b.Min.X + int(float64(b.Dx())*split)
	column := imaging.Crop(img, image.Rect(splitX, b.Min.Y, b.Max.X, b.Max.Y))
	return screenio.EncodePNG(column)
}

// MergeCedulas replaces the per-band cédula reads of the non-empty rows
// with the ensemble's reconciled records, in order. The ensemble reads the
// whole column top to bottom, so record i belongs to the i-th non-empty
// band. When the counts disagree, the mismatch is logged and only the
// prefix is merged: the first non-empty bands take the records in order,
// bands past the last record keep their single-pass read, and surplus
// records are ignored. Records carry no band position, so a record dropped
// by the ensemble gates is not located; the bands after it take the
// following records.
func MergeCedulas(rowData []cedula.RowData, records []cedula.CedulaRecord, logger *slog.Logger) []cedula.RowData {
	if logger == nil {
		logger = slog.Default()
	}

	nonEmpty := 0
	for _, r := range rowData {
		if !r.Empty {
			nonEmpty++
		}
	}
	if len(records) != nonEmpty {
		logger.Warn("ensemble record count differs from non-empty bands, merging prefix",
			"records", len(records), "non_empty_bands", nonEmpty)
	}

	out := make([]cedula.RowData, len(rowData))
	copy(out, rowData)
	next := 0
	for i := range out {
		if out[i].Empty || next >= len(records) {
			continue
		}
		out[i].Cedula = records[next].Digits
		out[i].CedulaConfidence = records[next].Confidence
		next++
	}
	return out
}
