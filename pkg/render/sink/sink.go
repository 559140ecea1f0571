// Package sink encodes composed posters into raster file formats.
//
// PNG is the default and keeps transparency. JPEG trades the alpha channel
// for much smaller files. Encoding and preview scaling use
// github.com/disintegration/imaging.
package sink

import (
	"bytes"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// Format is an output raster format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
)

// DefaultJPEGQuality is used when no quality option is given.
const DefaultJPEGQuality = 95

// ParseFormat validates a format name. "jpeg" is accepted as FormatJPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "svg", "pdf":
		return "", errors.New(errors.ErrCodeUnsupported, "vector format %q is not supported", s)
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want png or jpg)", s)
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// SupportsAlpha reports whether the format keeps transparency.
func (f Format) SupportsAlpha() bool {
	return f == FormatPNG
}

// Option configures encoding.
type Option func(*encoder)

type encoder struct {
	jpegQuality int
	compression png.CompressionLevel
}

// WithJPEGQuality sets the JPEG quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(e *encoder) { e.jpegQuality = q }
}

// WithPNGCompression sets the PNG compression level.
func WithPNGCompression(l png.CompressionLevel) Option {
	return func(e *encoder) { e.compression = l }
}

// Encode writes img in the given format.
func Encode(img image.Image, f Format, opts ...Option) ([]byte, error) {
	e := encoder{jpegQuality: DefaultJPEGQuality, compression: png.DefaultCompression}
	for _, opt := range opts {
		opt(&e)
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(e.compression))
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.jpegQuality))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", string(f))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", f)
	}
	return buf.Bytes(), nil
}

// Preview scales img down to fit within maxW x maxH. Smaller images are
// returned unscaled.
func Preview(img image.Image, maxW, maxH int) *image.NRGBA {
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

// Decode reads an encoded poster, e.g. for previews of stored files.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode image")
	}
	return img, nil
}
