package catalog

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// MasterType describes a host-managed enumeration that MASTER-sourced
// choice fields draw their options from.
type MasterType struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
	EnumName    string   `json:"enumName" yaml:"enumName"`
	Indexes     []string `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Active      bool     `json:"active" yaml:"active"`
}

// Catalog is the read-only auxiliary configuration injected by the host. It
// is safe for concurrent readers when treated as immutable after
// construction.
type Catalog struct {
	MasterTypes        []MasterType               `json:"masterTypes,omitempty"`
	DropdownOptions    map[string][]schema.Option `json:"dropdownOptions,omitempty"`
	LookupFieldOptions map[string][]string        `json:"lookupFieldOptions,omitempty"`
	Forms              []schema.Form              `json:"forms,omitempty"`
	SectionTemplates   []schema.Section           `json:"sectionTemplates,omitempty"`
}

// Empty reports whether the catalog carries no configuration.
func (c *Catalog) Empty() bool {
	return c == nil || (len(c.MasterTypes) == 0 && len(c.DropdownOptions) == 0 &&
		len(c.LookupFieldOptions) == 0 && len(c.Forms) == 0 && len(c.SectionTemplates) == 0)
}

// MasterType finds a master type by enum name, falling back to id.
func (c *Catalog) MasterType(key string) (MasterType, bool) {
	if c == nil {
		return MasterType{}, false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return MasterType{}, false
	}
	for _, mt := range c.MasterTypes {
		if mt.EnumName == key {
			return mt, true
		}
	}
	for _, mt := range c.MasterTypes {
		if mt.ID == key {
			return mt, true
		}
	}
	return MasterType{}, false
}

// ActiveMasterTypes lists active master types sorted by display name.
func (c *Catalog) ActiveMasterTypes() []MasterType {
	if c == nil {
		return nil
	}
	var out []MasterType
	for _, mt := range c.MasterTypes {
		if mt.Active {
			out = append(out, mt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return displayName(out[i]) < displayName(out[j])
	})
	return out
}

func displayName(mt MasterType) string {
	if mt.DisplayName != "" {
		return mt.DisplayName
	}
	return mt.Name
}

// LookupKeys lists the lookup sources, sorted.
func (c *Catalog) LookupKeys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.LookupFieldOptions))
	for key := range c.LookupFieldOptions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Options resolves the choice list for a given source. key is the master
// type enum name (or id) for MASTER and the lookup key for LOOKUP; it is
// ignored for STATIC, which has no catalog-backed options. Inactive master
// types resolve to nothing.
func (c *Catalog) Options(source schema.OptionSource, key string) ([]schema.Option, bool) {
	if c == nil {
		return nil, false
	}
	switch source {
	case schema.OptionSourceMaster:
		mt, ok := c.MasterType(key)
		if !ok || !mt.Active {
			return nil, false
		}
		options, ok := c.DropdownOptions[mt.EnumName]
		if !ok {
			return nil, false
		}
		return schema.DedupeOptions(append([]schema.Option(nil), options...)), true
	case schema.OptionSourceLookup:
		names, ok := c.LookupFieldOptions[strings.TrimSpace(key)]
		if !ok {
			return nil, false
		}
		out := make([]schema.Option, 0, len(names))
		for _, name := range names {
			out = append(out, schema.Option{Label: name, Value: name})
		}
		return schema.DedupeOptions(out), true
	}
	return nil, false
}

// OptionsFor resolves a field's options according to its option source.
// STATIC fields keep their own list.
func (c *Catalog) OptionsFor(field schema.Field) []schema.Option {
	switch field.OptionSource {
	case schema.OptionSourceMaster:
		options, _ := c.Options(schema.OptionSourceMaster, field.MasterType)
		return options
	case schema.OptionSourceLookup:
		options, _ := c.Options(schema.OptionSourceLookup, field.LookupSource)
		return options
	}
	return append([]schema.Option(nil), field.Options...)
}

// Form returns a copy of the existing form with the given id.
func (c *Catalog) Form(id string) (schema.Form, bool) {
	if c == nil {
		return schema.Form{}, false
	}
	for _, form := range c.Forms {
		if form.ID == id {
			return schema.Clone(form), true
		}
	}
	return schema.Form{}, false
}

// SectionTemplate returns a copy of the template with the given id.
func (c *Catalog) SectionTemplate(id string) (schema.Section, bool) {
	if c == nil {
		return schema.Section{}, false
	}
	for _, section := range c.SectionTemplates {
		if section.ID == id {
			return schema.CloneSection(section), true
		}
	}
	return schema.Section{}, false
}
