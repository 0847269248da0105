package component

import (
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// DefinitionFile is the on-disk shape of a component definition file:
//
//	components:
//	  - type: PromoBanner
//	    category: content
//	    props:
//	      text: {kind: string, required: true}
//	    bindingKeys: [text]
//	    actionSlots: [onClick]
//	    defaults:
//	      props: {text: "Free shipping over $50"}
type DefinitionFile struct {
	Components []Definition `yaml:"components"`
}

// ParseYAML decodes a definition file.
func ParseYAML(data []byte) ([]Definition, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Components, nil
}

// LoadYAML registers every definition found in the *.yaml and *.yml files of
// dir within fsys, in file-name order. It returns the number of definitions
// registered. A definition with the same type as an existing one replaces it.
func (r *Registry) LoadYAML(fsys fs.FS, dir string) (int, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return 0, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	count := 0
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return count, sferrors.New("E203").WithDetailf("read %s", name).Wrap(err)
		}
		defs, err := ParseYAML(data)
		if err != nil {
			return count, sferrors.New("E203").WithDetailf("parse %s", name).Wrap(err)
		}
		for _, def := range defs {
			if err := r.Register(def); err != nil {
				return count, sferrors.New("E203").WithDetail(name).Wrap(err)
			}
			count++
		}
		r.logger.Info("component definitions loaded", "file", name, "count", len(defs))
	}
	return count, nil
}
