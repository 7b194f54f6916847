package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/schema"
)

type formulaInfo struct {
	ID           string   `json:"id"`
	Key          string   `json:"key"`
	Formula      string   `json:"formula"`
	Dependencies []string `json:"dependencies"`
	Valid        bool     `json:"valid"`
	Reason       string   `json:"reason,omitempty"`
	Circular     bool     `json:"circular,omitempty"`
}

type depsReport struct {
	Formulas   []formulaInfo `json:"formulas"`
	Cycles     []string      `json:"cycles,omitempty"`
	Field      string        `json:"field,omitempty"`
	Dependents []string      `json:"dependents,omitempty"`
}

func newDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <form.json>",
		Short: "List formula dependencies and cycles",
		Long: `List every formula field with the fields it references, flag formulas that
sit on a circular dependency, and (with --field) list the formulas that
reference a given field, which is what breaks if that field is removed.

Examples:
  formdesigner deps order.json
  formdesigner deps order.json --field qty -f yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runDeps,
	}
	formatFlag(cmd)
	cmd.Flags().String("field", "", "Field id or name whose dependents to list")
	return cmd
}

func runDeps(cmd *cobra.Command, args []string) error {
	env, err := RequireEnv(cmd.Context())
	if err != nil {
		return err
	}
	format, err := getFormat(cmd)
	if err != nil {
		return err
	}
	fieldKey, _ := cmd.Flags().GetString("field")

	st, err := openStore(env, args[0])
	if err != nil {
		return err
	}
	form := st.Form()
	report, err := buildDepsReport(&form, st.ValidateFormulas(), strings.TrimSpace(fieldKey))
	if err != nil {
		return err
	}

	if format != FormatText {
		return writeData(cmd.OutOrStdout(), format, report)
	}
	out := cmd.OutOrStdout()
	if len(report.Formulas) == 0 {
		fmt.Fprintln(out, "no formula fields")
	}
	for _, info := range report.Formulas {
		line := fmt.Sprintf("%s = %s  <- %s", info.Key, info.Formula, strings.Join(info.Dependencies, ", "))
		if info.Circular {
			line += "  [circular]"
		}
		if !info.Valid {
			line += "  [" + info.Reason + "]"
		}
		fmt.Fprintln(out, line)
	}
	if report.Field != "" {
		if len(report.Dependents) == 0 {
			fmt.Fprintf(out, "no formulas reference %s\n", report.Field)
		} else {
			fmt.Fprintf(out, "referenced by: %s\n", strings.Join(report.Dependents, ", "))
		}
	}
	return nil
}

func buildDepsReport(form *schema.Form, results map[string]formula.Result, fieldKey string) (depsReport, error) {
	cycles := formula.FindCycles(form)
	circular := make(map[string]bool, len(cycles))
	for _, id := range cycles {
		circular[id] = true
	}

	report := depsReport{Cycles: cycles, Formulas: []formulaInfo{}}
	for _, field := range form.Fields() {
		if !field.IsFormula() {
			continue
		}
		result := results[field.ID]
		report.Formulas = append(report.Formulas, formulaInfo{
			ID:           field.ID,
			Key:          field.Key(),
			Formula:      field.Formula,
			Dependencies: formula.ParseDependencies(field.Formula),
			Valid:        result.Valid,
			Reason:       result.Reason,
			Circular:     circular[field.ID],
		})
	}

	if fieldKey != "" {
		target, ok := form.FieldByKey(fieldKey)
		if !ok {
			return depsReport{}, fmt.Errorf("field %q not found", fieldKey)
		}
		report.Field = target.Key()
		for _, id := range formula.Dependents(form, target.ID) {
			if ref, ok := form.FindField(id); ok {
				report.Dependents = append(report.Dependents, form.Sections[ref.Section].Fields[ref.Index].Key())
			}
		}
	}
	return report, nil
}
