package theme

import (
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Info describes an available theme for listings.
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// List enumerates the themes available to the resolver, sorted by name.
// The built-in default is always present. Files that fail to parse are
// listed with their file stem as display name.
func (r *Resolver) List() ([]Info, error) {
	seen := map[string]bool{}
	var infos []Info

	if r.FS != nil {
		entries, err := fs.ReadDir(r.FS, ".")
		if err != nil && !isNotExist(err) {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := path.Ext(e.Name())
			if !knownExtension(ext) {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ext)
			if seen[name] {
				continue
			}
			seen[name] = true
			infos = append(infos, r.describe(name, e.Name()))
		}
	}

	if !seen[DefaultName] {
		d := r.Default
		infos = append(infos, Info{Name: DefaultName, DisplayName: d.Name, Description: d.Description})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (r *Resolver) describe(name, file string) Info {
	info := Info{Name: name, DisplayName: name}
	data, err := fs.ReadFile(r.FS, file)
	if err != nil {
		return info
	}
	doc, err := decode(file, data)
	if err != nil {
		return info
	}
	if s, ok := doc[keyName].(string); ok && s != "" {
		info.DisplayName = s
	}
	if s, ok := doc[keyDescription].(string); ok {
		info.Description = s
	}
	return info
}

func knownExtension(ext string) bool {
	for _, e := range fileExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
