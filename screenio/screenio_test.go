package screenio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

// testScreenshot builds a 100x100 image with a distinct 10x10 red block at
// (40, 40).
func testScreenshot() image.Image {
	img := imaging.New(100, 100, color.White)
	red := imaging.New(10, 10, color.NRGBA{R: 255, A: 255})
	return imaging.Paste(img, red, image.Pt(40, 40))
}

func TestFileCapturer_CropsRegion(t *testing.T) {
	t.Parallel()

	c := NewFileCapturerFromImage(testScreenshot())
	got, err := c.Capture(context.Background(), Region{X: 40, Y: 40, W: 10, H: 10})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	b := got.Bounds()
	if b.Dx() != 10 || b.Dy() != 10 {
		t.Fatalf("bounds = %v, want 10x10", b)
	}
	r, _, _, _ := got.At(b.Min.X, b.Min.Y).RGBA()
	if r>>8 != 255 {
		t.Fatalf("cropped pixel not from the red block: r = %d", r>>8)
	}
}

func TestFileCapturer_RejectsOutOfBounds(t *testing.T) {
	t.Parallel()

	c := NewFileCapturerFromImage(testScreenshot())
	if _, err := c.Capture(context.Background(), Region{X: 95, Y: 95, W: 20, H: 20}); err == nil {
		t.Fatal("out-of-bounds region must error")
	}
}

func TestImportCapturer_CommandLine(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	c := NewImportCapturer()
	c.run = func(_ context.Context, args ...string) ([]byte, error) {
		gotArgs = args
		png, err := EncodePNG(imaging.New(4, 4, color.White))
		if err != nil {
			return nil, err
		}
		return png, nil
	}

	img, err := c.Capture(context.Background(), Region{X: 10, Y: 20, W: 200, H: 40})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if img == nil {
		t.Fatal("nil image")
	}

	want := []string{"-window", "root", "-crop", "200x40+10+20", "png:-"}
	if len(gotArgs) != len(want) {
		t.Fatalf("args = %v, want %v", gotArgs, want)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("args = %v, want %v", gotArgs, want)
		}
	}
}

func TestScrotCapturer_Geometry(t *testing.T) {
	t.Parallel()

	var gotGeometry string
	c := NewScrotCapturer()
	c.run = func(_ context.Context, geometry string) ([]byte, error) {
		gotGeometry = geometry
		return EncodePNG(imaging.New(4, 4, color.White))
	}

	img, err := c.Capture(context.Background(), Region{X: 10, Y: 20, W: 200, H: 40})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if img == nil {
		t.Fatal("nil image")
	}
	if gotGeometry != "10,20,200,40" {
		t.Fatalf("geometry = %q, want 10,20,200,40", gotGeometry)
	}
}

func TestScrotCapturer_UndecodableOutput(t *testing.T) {
	t.Parallel()

	c := NewScrotCapturer()
	c.run = func(context.Context, string) ([]byte, error) {
		return []byte("not a png"), nil
	}
	if _, err := c.Capture(context.Background(), Region{W: 4, H: 4}); err == nil {
		t.Fatal("undecodable capture must error")
	}
}

func TestEncodePNG_RoundTrips(t *testing.T) {
	t.Parallel()

	data, err := EncodePNG(imaging.New(8, 8, color.Black))
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("encoded bytes do not decode: %v", err)
	}
}
