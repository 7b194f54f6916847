// Package store keeps the form being designed together with its undo
// history, the current selection and preview values.
//
// All mutations go through a draft: the store clones the current document,
// applies the edit and, when something actually changed, commits the draft
// as a new immutable snapshot. Unknown ids are silent no-ops (logged at
// debug level) and never create a history entry. Batch groups several edits
// into one snapshot and one notification.
//
//	s, _ := store.New(store.WithCatalog(cat))
//	unsubscribe := s.Subscribe(func() { render(s.Form()) })
//	defer unsubscribe()
//
//	id, _ := s.AddField("", schema.FieldTypeNumber, -1)
//	_ = s.UpdateField(id, schema.Patch{"fieldName": "total"})
package store
