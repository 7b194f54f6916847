package formula

import (
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

// ComputeValues returns values with every formula field evaluated. Manual
// values are looked up by field key (fieldName, falling back to id) and then
// by id, and stored under both so formulas can reference either. Formula
// fields are re-evaluated once per formula field present, which settles any
// acyclic chain regardless of declaration order. Cycles simply stop after
// the last pass; reject them up front with DetectCircularDependency.
func ComputeValues(form *schema.Form, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	if form == nil {
		return out
	}

	type compiled struct {
		field schema.Field
		expr  *Expr
	}
	var formulas []compiled
	for _, field := range form.Fields() {
		if field.IsFormula() {
			expr, _ := Parse(field.Formula)
			formulas = append(formulas, compiled{field: field, expr: expr})
			delete(out, field.ID)
			delete(out, field.Key())
			continue
		}
		value, ok := values[field.Key()]
		if !ok {
			value, ok = values[field.ID]
		}
		if !ok {
			continue
		}
		out[field.ID] = value
		out[field.Key()] = value
	}

	for pass := 0; pass < len(formulas); pass++ {
		for _, entry := range formulas {
			// a nil expr evaluates to NaN
			result := entry.expr.Eval(out)
			out[entry.field.ID] = result
			out[entry.field.Key()] = result
		}
	}
	return out
}

// FormulaValues is ComputeValues narrowed to the formula fields, keyed by
// field id.
func FormulaValues(form *schema.Form, values map[string]any) map[string]float64 {
	computed := ComputeValues(form, values)
	out := make(map[string]float64)
	if form == nil {
		return out
	}
	for _, field := range form.Fields() {
		if !field.IsFormula() {
			continue
		}
		if v, ok := computed[field.ID].(float64); ok {
			out[field.ID] = v
		}
	}
	return out
}
