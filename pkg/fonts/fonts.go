// Package fonts locates and parses the caption typefaces.
//
// Posters use Roboto in three weights. Each weight is looked up in order:
//
//  1. the fonts directory (Roboto-Bold.ttf, Roboto-Regular.ttf, Roboto-Light.ttf)
//  2. the system font paths, via github.com/flopp/go-findfont
//  3. the Go fonts embedded in golang.org/x/image, so rendering never
//     fails for lack of a font file
package fonts

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// Weight selects one of the three caption typefaces.
type Weight int

const (
	Regular Weight = iota
	Bold
	Light
)

// Files maps each weight to its Roboto file name.
var Files = map[Weight]string{
	Bold:    "Roboto-Bold.ttf",
	Regular: "Roboto-Regular.ttf",
	Light:   "Roboto-Light.ttf",
}

// SourceEmbedded marks a weight served from the embedded Go fonts.
const SourceEmbedded = "embedded"

// Set holds parsed fonts for every weight.
type Set struct {
	fonts   map[Weight]*truetype.Font
	sources map[Weight]string
}

var (
	embedded     *Set
	embeddedErr  error
	embeddedOnce sync.Once
)

// Embedded returns the built-in fallback set. The result is parsed once.
func Embedded() (*Set, error) {
	embeddedOnce.Do(func() {
		bold, err := truetype.Parse(gobold.TTF)
		if err != nil {
			embeddedErr = errors.Wrap(errors.ErrCodeInternal, err, "parse embedded bold font")
			return
		}
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			embeddedErr = errors.Wrap(errors.ErrCodeInternal, err, "parse embedded regular font")
			return
		}
		embedded = &Set{
			fonts:   map[Weight]*truetype.Font{Bold: bold, Regular: regular, Light: regular},
			sources: map[Weight]string{Bold: SourceEmbedded, Regular: SourceEmbedded, Light: SourceEmbedded},
		}
	})
	return embedded, embeddedErr
}

// Load resolves every weight from dir, then system fonts, then the
// embedded set. An empty dir skips the first step.
func Load(dir string) (*Set, error) {
	fallback, err := Embedded()
	if err != nil {
		return nil, err
	}

	s := &Set{fonts: map[Weight]*truetype.Font{}, sources: map[Weight]string{}}
	for w, file := range Files {
		f, src := find(dir, file)
		if f == nil {
			f, src = fallback.fonts[w], SourceEmbedded
		}
		s.fonts[w] = f
		s.sources[w] = src
	}
	return s, nil
}

func find(dir, file string) (*truetype.Font, string) {
	var candidates []string
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, file))
	}
	if p, err := findfont.Find(file); err == nil {
		candidates = append(candidates, p)
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := truetype.Parse(data)
		if err != nil {
			continue
		}
		return f, p
	}
	return nil, ""
}

// Font returns the parsed font for a weight.
func (s *Set) Font(w Weight) *truetype.Font {
	if f, ok := s.fonts[w]; ok {
		return f
	}
	return s.fonts[Regular]
}

// Source reports where a weight was loaded from: a file path or
// SourceEmbedded.
func (s *Set) Source(w Weight) string {
	return s.sources[w]
}

// Face returns a face for w at size points and dpi.
func (s *Set) Face(w Weight, size, dpi float64) font.Face {
	return truetype.NewFace(s.Font(w), &truetype.Options{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingNone,
	})
}
