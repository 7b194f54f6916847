package store

import "github.com/goliatone/go-formdesigner/pkg/schema"

// DefaultHistoryLimit caps the number of snapshots kept for undo.
const DefaultHistoryLimit = 100

// History is a linear list of document snapshots with a cursor. Snapshots
// are treated as immutable: the store always edits a fresh clone.
type History struct {
	entries []schema.Form
	index   int
	limit   int
}

func newHistory(initial schema.Form, limit int) *History {
	h := &History{limit: limit}
	h.Reset(initial)
	return h
}

// Reset drops every entry and starts over from form.
func (h *History) Reset(form schema.Form) {
	h.entries = []schema.Form{form}
	h.index = 0
}

// Push records a new snapshot, discarding any redo entries. When a limit is
// set the oldest entries are dropped.
func (h *History) Push(form schema.Form) {
	h.entries = append(h.entries[:h.index+1], form)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append([]schema.Form(nil), h.entries[len(h.entries)-h.limit:]...)
	}
	h.index = len(h.entries) - 1
}

// Undo moves the cursor back one entry.
func (h *History) Undo() (schema.Form, bool) {
	if !h.CanUndo() {
		return schema.Form{}, false
	}
	h.index--
	return h.entries[h.index], true
}

// Redo moves the cursor forward one entry.
func (h *History) Redo() (schema.Form, bool) {
	if !h.CanRedo() {
		return schema.Form{}, false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len returns the number of stored snapshots.
func (h *History) Len() int { return len(h.entries) }

// Index returns the cursor position.
func (h *History) Index() int { return h.index }
