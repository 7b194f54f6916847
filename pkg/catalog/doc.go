// Package catalog holds the auxiliary configuration a host injects into the
// designer: master types and their dropdown option lists, lookup sources,
// existing forms that can be cloned or switched to, and reusable section
// templates.
//
// Catalog documents are JSON or YAML with the top-level keys masterTypes,
// dropdownOptions, lookupFieldOptions, forms and sectionTemplates. Forms go
// through schema.Decode, so legacy validation shapes are accepted there too.
package catalog
