package sink

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/matzehuels/cityposter/pkg/errors"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodePNG(t *testing.T) {
	data, err := Encode(testImage(40, 30), FormatPNG, WithPNGCompression(png.BestSpeed))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("decoded size = %v", b)
	}
	if got := color.RGBAModel.Convert(img.At(5, 7)).(color.RGBA); got != (color.RGBA{5, 7, 128, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := Encode(testImage(40, 30), FormatJPEG, WithJPEGQuality(80))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("jpeg.DecodeConfig() error: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("decoded size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		code errors.Code
	}{
		{"", FormatPNG, ""},
		{"PNG", FormatPNG, ""},
		{"jpeg", FormatJPEG, ""},
		{"jpg", FormatJPEG, ""},
		{"svg", "", errors.ErrCodeUnsupported},
		{"pdf", "", errors.ErrCodeUnsupported},
		{"gif", "", errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if errors.GetCode(err) != tt.code {
				t.Fatalf("ParseFormat(%q) error = %v, want code %q", tt.in, err, tt.code)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatAttributes(t *testing.T) {
	if FormatJPEG.ContentType() != "image/jpeg" || FormatPNG.ContentType() != "image/png" {
		t.Error("unexpected content types")
	}
	if FormatJPEG.SupportsAlpha() || !FormatPNG.SupportsAlpha() {
		t.Error("unexpected alpha support")
	}
	if FormatJPEG.Extension() != "jpg" {
		t.Errorf("Extension() = %q", FormatJPEG.Extension())
	}
}

func TestPreview(t *testing.T) {
	p := Preview(testImage(400, 600), 100, 100)
	if b := p.Bounds(); b.Dx() > 100 || b.Dy() != 100 {
		t.Errorf("Preview() size = %v", b)
	}

	small := Preview(testImage(20, 10), 100, 100)
	if b := small.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("Preview() of small image = %v, want unscaled", b)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	data, err := Encode(testImage(8, 8), FormatPNG)
	if err != nil {
		t.Fatal(err)
	}
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("Decode() width = %d", img.Bounds().Dx())
	}
	if _, err := Decode([]byte("nope")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Decode(garbage) error = %v", err)
	}
}
