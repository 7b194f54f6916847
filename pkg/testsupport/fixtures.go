package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// MustLoadForm reads a persisted form fixture through schema.Decode, so
// legacy shapes in the fixture are normalised the same way production loads
// them.
func MustLoadForm(t *testing.T, path string) schema.Form {
	t.Helper()

	form, err := LoadForm(path)
	if err != nil {
		t.Fatalf("load form: %v", err)
	}
	return form
}

// LoadForm returns a decoded form without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadForm(path string) (schema.Form, error) {
	if path == "" {
		return schema.Form{}, errors.New("testsupport: form path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Form{}, fmt.Errorf("testsupport: read form: %w", err)
	}
	form, err := schema.Decode(data)
	if err != nil {
		return schema.Form{}, fmt.Errorf("testsupport: decode form: %w", err)
	}
	return form, nil
}

// MustLoadCatalog loads a catalog fixture (JSON or YAML).
func MustLoadCatalog(t *testing.T, path string) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

// WriteGolden writes data to a golden file when UPDATE_GOLDENS is set and
// reports whether it did (the test should return early).
func WriteGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// AssertJSONGolden compares value, marshalled to JSON, against the golden
// file at path. The comparison is structural so key order and whitespace do
// not matter. With UPDATE_GOLDENS set the golden is rewritten instead.
func AssertJSONGolden(t *testing.T, path string, value any) {
	t.Helper()

	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden value: %v", err)
	}
	if WriteGolden(t, path, append(payload, '\n')) {
		return
	}

	var want, got any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("unmarshal golden %s: %v", path, err)
	}
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if diff := CompareGolden(want, got); diff != "" {
		t.Fatalf("golden mismatch for %s (-want +got):\n%s", path, diff)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
