package store

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// UUIDGenerator prefixes a shortened random UUID: "field_3f2a9c01b4de".
func UUIDGenerator(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:12]
}

// SequentialIDs returns a generator producing "field_1", "field_2", ... per
// prefix. It keeps tests deterministic.
func SequentialIDs() schema.IDFunc {
	var mu sync.Mutex
	counters := make(map[string]int)
	return func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		counters[prefix]++
		return prefix + "_" + strconv.Itoa(counters[prefix])
	}
}
