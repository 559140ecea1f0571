package pipeline

import (
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/matzehuels/cityposter/pkg/render/sink"
)

// timestampLayout is YYYYMMDD_HHMMSS.
const timestampLayout = "20060102_150405"

// Slug transliterates s to lowercase ASCII and joins its words with
// underscores. A name with nothing left becomes "poster".
func Slug(s string) string {
	out := strings.ReplaceAll(slug.Make(s), "-", "_")
	if out == "" {
		return "poster"
	}
	return out
}

// Filename builds {city}_{theme}_{YYYYMMDD_HHMMSS}.{ext}.
func Filename(city, themeName string, f sink.Format, t time.Time) string {
	return Slug(city) + "_" + themeName + "_" + t.Format(timestampLayout) + "." + f.Extension()
}
