// Package screenio captures rectangular screen regions for the second-stage
// OCR pass over the target application's rendered response. The production
// backends shell out to ImageMagick's import or to scrot; the file backend
// crops pre-captured screenshots and serves tests and headless runs.
package screenio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Region is a screen rectangle in pixels.
type Region struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Capturer grabs one screen region as an image.
type Capturer interface {
	Capture(ctx context.Context, r Region) (image.Image, error)
}

// EncodePNG serializes an image for the OCR providers, which accept PNG
// bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("screenio: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportCapturer captures via ImageMagick's import tool, available on any
// X11 host. Each call grabs only the requested region.
type ImportCapturer struct {
	// run is swapped in tests.
	run func(ctx context.Context, args ...string) ([]byte, error)
}

// NewImportCapturer returns a Capturer backed by the import binary on PATH.
func NewImportCapturer() *ImportCapturer {
	return &ImportCapturer{run: runImport}
}

func runImport(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "import", args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return out, nil
}

// Capture implements Capturer.
func (c *ImportCapturer) Capture(ctx context.Context, r Region) (image.Image, error) {
	crop := fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
	out, err := c.run(ctx, "-window", "root", "-crop", crop, "png:-")
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("screenio: decoding capture: %w", err)
	}
	return img, nil
}

// ScrotCapturer captures via the scrot binary. scrot writes to a file, not
// a pipe, so each capture goes through a private temp file that is removed
// as soon as its bytes are read, before decoding.
type ScrotCapturer struct {
	// run is swapped in tests.
	run func(ctx context.Context, geometry string) ([]byte, error)
}

// NewScrotCapturer returns a Capturer backed by the scrot binary on PATH.
func NewScrotCapturer() *ScrotCapturer {
	return &ScrotCapturer{run: runScrot}
}

func runScrot(ctx context.Context, geometry string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "firmas-scrot-")
	if err != nil {
		return nil, fmt.Errorf("scrot: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "region.png")
	cmd := exec.CommandContext(ctx, "scrot", "-a", geometry, "-o", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("scrot: %w: %s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scrot: reading capture: %w", err)
	}
	return data, nil
}

// Capture implements Capturer.
func (c *ScrotCapturer) Capture(ctx context.Context, r Region) (image.Image, error) {
	geometry := fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.W, r.H)
	out, err := c.run(ctx, geometry)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("screenio: decoding capture: %w", err)
	}
	return img, nil
}

// FileCapturer serves regions cropped out of a single pre-captured
// screenshot. Used by tests and by headless runs over stored captures.
type FileCapturer struct {
	screenshot image.Image
}

// NewFileCapturer reads the screenshot once and serves every region from
// it.
func NewFileCapturer(path string) (*FileCapturer, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("screenio: opening %s: %w", path, err)
	}
	return &FileCapturer{screenshot: img}, nil
}

// NewFileCapturerFromImage wraps an already-decoded screenshot.
func NewFileCapturerFromImage(img image.Image) *FileCapturer {
	return &FileCapturer{screenshot: img}
}

// Capture implements Capturer.
func (c *FileCapturer) Capture(_ context.Context, r Region) (image.Image, error) {
	b := c.screenshot.Bounds()
	rect := image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
	if !rect.In(b) {
		return nil, fmt.Errorf("screenio: region %v outside screenshot bounds %v", rect, b)
	}
	return imaging.Crop(c.screenshot, rect), nil
}
