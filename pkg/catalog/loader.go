package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// LoadFS walks fsys and merges every JSON/YAML catalog file it finds. A nil
// fsys yields an empty catalog.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	out := &Catalog{}
	if fsys == nil {
		return out, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}
		parsed, err := Parse(data, path)
		if err != nil {
			return err
		}
		return out.merge(parsed, path)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFile parses a single catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadPath loads a directory through LoadFS or a single file through
// LoadFile.
func LoadPath(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(path))
	}
	return LoadFile(path)
}

// Merge combines catalogs into a new one. A key present in more than one
// input is an error. Nil inputs are skipped.
func Merge(catalogs ...*Catalog) (*Catalog, error) {
	out := &Catalog{}
	for idx, c := range catalogs {
		if err := out.merge(c, fmt.Sprintf("input #%d", idx)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type catalogFile struct {
	MasterTypes        []MasterType               `json:"masterTypes"`
	DropdownOptions    map[string][]schema.Option `json:"dropdownOptions"`
	LookupFieldOptions map[string][]string        `json:"lookupFieldOptions"`
	Forms              []json.RawMessage          `json:"forms"`
	SectionTemplates   []schema.Section           `json:"sectionTemplates"`
}

// Parse decodes a catalog document. JSON is tried first, then YAML; YAML
// input is bridged through JSON so the schema's json tags and legacy
// decoders apply to both.
func Parse(data []byte, source string) (*Catalog, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("catalog: file %s is empty", source)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		var generic map[string]any
		if yerr := yaml.Unmarshal(data, &generic); yerr != nil {
			return nil, fmt.Errorf("catalog: parse %s: invalid JSON or YAML", source)
		}
		bridged, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", source, err)
		}
		if err := json.Unmarshal(bridged, &file); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", source, err)
		}
	}

	out := &Catalog{
		MasterTypes:        file.MasterTypes,
		DropdownOptions:    file.DropdownOptions,
		LookupFieldOptions: file.LookupFieldOptions,
	}

	seenEnums := make(map[string]struct{}, len(file.MasterTypes))
	for idx, mt := range file.MasterTypes {
		if strings.TrimSpace(mt.EnumName) == "" {
			return nil, fmt.Errorf("catalog: %s master type #%d has no enumName", source, idx)
		}
		if _, dup := seenEnums[mt.EnumName]; dup {
			return nil, fmt.Errorf("catalog: %s duplicate master type %q", source, mt.EnumName)
		}
		seenEnums[mt.EnumName] = struct{}{}
	}
	for enum, options := range out.DropdownOptions {
		out.DropdownOptions[enum] = schema.DedupeOptions(options)
	}

	for idx, raw := range file.Forms {
		form, err := schema.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s form #%d: %w", source, idx, err)
		}
		out.Forms = append(out.Forms, form)
	}

	if len(file.SectionTemplates) > 0 {
		holder := schema.Form{Sections: file.SectionTemplates}
		schema.Normalize(&holder, nil)
		out.SectionTemplates = holder.Sections
	}

	return out, nil
}

func (c *Catalog) merge(other *Catalog, source string) error {
	if other == nil {
		return nil
	}
	for _, mt := range other.MasterTypes {
		if _, exists := c.MasterType(mt.EnumName); exists {
			return fmt.Errorf("catalog: duplicate master type %q (file %s)", mt.EnumName, source)
		}
		c.MasterTypes = append(c.MasterTypes, mt)
	}
	for enum, options := range other.DropdownOptions {
		if c.DropdownOptions == nil {
			c.DropdownOptions = make(map[string][]schema.Option)
		}
		if _, exists := c.DropdownOptions[enum]; exists {
			return fmt.Errorf("catalog: duplicate dropdown options %q (file %s)", enum, source)
		}
		c.DropdownOptions[enum] = options
	}
	for key, names := range other.LookupFieldOptions {
		if c.LookupFieldOptions == nil {
			c.LookupFieldOptions = make(map[string][]string)
		}
		if _, exists := c.LookupFieldOptions[key]; exists {
			return fmt.Errorf("catalog: duplicate lookup source %q (file %s)", key, source)
		}
		c.LookupFieldOptions[key] = names
	}
	for _, form := range other.Forms {
		if _, exists := c.Form(form.ID); exists {
			return fmt.Errorf("catalog: duplicate form %q (file %s)", form.ID, source)
		}
		c.Forms = append(c.Forms, form)
	}
	for _, section := range other.SectionTemplates {
		if _, exists := c.SectionTemplate(section.ID); exists {
			return fmt.Errorf("catalog: duplicate section template %q (file %s)", section.ID, source)
		}
		c.SectionTemplates = append(c.SectionTemplates, section)
	}
	return nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
