package theme

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// Extensions recognized for theme files, in lookup order.
var fileExtensions = []string{".json", ".yaml", ".yml"}

// Resolver loads named themes from a directory and merges them onto a
// default palette.
type Resolver struct {
	FS      fs.FS
	Default Theme
}

// NewResolver creates a resolver reading theme files from dir with the
// built-in default palette.
func NewResolver(dir string) *Resolver {
	return &Resolver{FS: os.DirFS(dir), Default: Default()}
}

// Resolve returns the complete theme for name with overrides applied last.
// An empty name resolves to the default palette.
func (r *Resolver) Resolve(name string, overrides map[string]string) (Theme, error) {
	t := r.Default.Clone()

	if name != "" {
		if err := errors.ValidateThemeName(name); err != nil {
			return Theme{}, err
		}
		doc, err := r.load(name)
		switch {
		case err == nil:
			if err := merge(&t, doc); err != nil {
				return Theme{}, errors.ThemeLoad(err, "theme %q could not be parsed", name)
			}
		case isNotExist(err) && name == DefaultName:
			// the built-in palette stands in for a missing default file
		case isNotExist(err):
			return Theme{}, errors.ThemeLoad(err, "theme %q not found", name)
		default:
			return Theme{}, errors.ThemeLoad(err, "theme %q could not be read", name)
		}
	}

	if len(overrides) > 0 {
		doc := make(map[string]any, len(overrides))
		for k, v := range overrides {
			doc[k] = v
		}
		if err := merge(&t, doc); err != nil {
			return Theme{}, errors.ThemeLoad(err, "custom theme could not be parsed")
		}
	}

	return t, nil
}

// Exists reports whether a theme file for name is present, or name is the
// built-in default.
func (r *Resolver) Exists(name string) bool {
	if name == DefaultName {
		return true
	}
	if errors.ValidateThemeName(name) != nil {
		return false
	}
	_, _, err := r.find(name)
	return err == nil
}

func (r *Resolver) find(name string) (string, []byte, error) {
	if r.FS == nil {
		return "", nil, fs.ErrNotExist
	}
	for _, ext := range fileExtensions {
		file := name + ext
		data, err := fs.ReadFile(r.FS, file)
		if err == nil {
			return file, data, nil
		}
		if !isNotExist(err) {
			return file, nil, err
		}
	}
	return "", nil, fs.ErrNotExist
}

func (r *Resolver) load(name string) (map[string]any, error) {
	file, data, err := r.find(name)
	if err != nil {
		return nil, err
	}
	return decode(file, data)
}

func decode(file string, data []byte) (map[string]any, error) {
	doc := map[string]any{}
	switch path.Ext(file) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// merge overlays doc onto t. Required keys must hold valid colors; unknown
// keys are kept as extensions when they parse as colors and ignored
// otherwise.
func merge(t *Theme, doc map[string]any) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := doc[key]
		switch key {
		case keyName:
			if s, ok := raw.(string); ok {
				t.Name = s
			}
			continue
		case keyDescription:
			if s, ok := raw.(string); ok {
				t.Description = s
			}
			continue
		}

		s, ok := raw.(string)
		if IsRequired(key) {
			if !ok {
				return fmt.Errorf("%s: expected color string, got %T", key, raw)
			}
			c, err := ParseColor(s)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			t.Set(key, c)
			continue
		}
		if !ok {
			continue
		}
		if c, err := ParseColor(s); err == nil {
			t.Set(key, c)
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist)
}
