package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formdesigner/pkg/formula"
	"github.com/goliatone/go-formdesigner/pkg/tui"
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [form.json]",
		Short: "Compute formula fields from sample values",
		Long: `Compute every formula field of a form from the values given with --set.

Values are keyed by field name or id. Numbers are parsed as numbers, anything
else is kept as text (non-numeric text makes a formula NaN). With --expr a single
expression is evaluated instead; when a form is given too, the expression can
reference its computed fields.

Examples:
  formdesigner eval order.json --set qty=2 --set price=9.5
  formdesigner eval --expr "(a + b) / 2" --set a=3 --set b=4`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEval,
	}
	formatFlag(cmd)
	cmd.Flags().StringArray("set", nil, "Runtime value as key=value (repeatable)")
	cmd.Flags().String("expr", "", "Evaluate a single expression")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	env, err := RequireEnv(cmd.Context())
	if err != nil {
		return err
	}
	format, err := getFormat(cmd)
	if err != nil {
		return err
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	expr, _ := cmd.Flags().GetString("expr")

	values, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	if len(args) == 0 && strings.TrimSpace(expr) == "" {
		return errors.New("eval needs a form, --expr, or both")
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return printResult(cmd, format, expr, formula.Evaluate(expr, values))
	}

	st, err := openStore(env, args[0])
	if err != nil {
		return err
	}
	st.SetPreviewMode(true)
	for key, value := range values {
		st.SetValue(key, value)
	}
	computed := st.Values()

	if strings.TrimSpace(expr) != "" {
		return printResult(cmd, format, expr, formula.Evaluate(expr, computed))
	}

	form := st.Form()
	if format == FormatText {
		_, err := fmt.Fprintln(out, tui.FormatValues(form, computed))
		return err
	}
	byKey := make(map[string]any)
	for _, field := range form.Fields() {
		if value, ok := computed[field.Key()]; ok {
			byKey[field.Key()] = jsonSafe(value)
		}
	}
	return writeData(out, format, byKey)
}

func printResult(cmd *cobra.Command, format Format, expr string, result float64) error {
	if format == FormatText {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(result, 'g', -1, 64))
		return err
	}
	return writeData(cmd.OutOrStdout(), format, map[string]any{
		"expr":   expr,
		"result": jsonSafe(result),
	})
}

// jsonSafe turns NaN and infinities into strings; encoding/json rejects them.
func jsonSafe(value any) any {
	if f, ok := value.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return value
}

func parseAssignments(raw []string) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q (want key=value)", entry)
		}
		value = strings.TrimSpace(value)
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			values[key] = n
			continue
		}
		values[key] = value
	}
	return values, nil
}
