package schema

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/mohae/deepcopy"
)

// Patch is a partial update expressed as a JSON merge patch: present keys
// overwrite, nested objects merge key by key, a nil value clears the key and
// arrays replace wholesale.
type Patch map[string]any

// Has reports whether the patch touches key.
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Nested returns the object stored under key, if any.
func (p Patch) Nested(key string) (map[string]any, bool) {
	raw, ok := p[key]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case Patch:
		return v, true
	}
	return nil, false
}

// Without returns a copy of p minus the given keys.
func (p Patch) Without(keys ...string) Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// ApplyPatch merges patch into target and decodes the result back into out.
// target and out may point at the same value.
func ApplyPatch[T any](target T, patch Patch, out *T) error {
	original, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("schema: encode patch target: %w", err)
	}
	doc, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("schema: encode patch: %w", err)
	}
	merged, err := jsonpatch.MergePatch(original, doc)
	if err != nil {
		return fmt.Errorf("schema: merge patch: %w", err)
	}
	var result T
	if err := json.Unmarshal(merged, &result); err != nil {
		return fmt.Errorf("schema: decode patched value: %w", err)
	}
	*out = result
	return nil
}

// Clone returns a deep copy of the form.
func Clone(form Form) Form {
	return deepcopy.Copy(form).(Form)
}

// CloneSection returns a deep copy of a section.
func CloneSection(section Section) Section {
	return deepcopy.Copy(section).(Section)
}

// CloneField returns a deep copy of a field.
func CloneField(field Field) Field {
	return deepcopy.Copy(field).(Field)
}
