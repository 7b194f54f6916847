package command

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formdesigner/pkg/schema"
)

func newNormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <form.json>",
		Short: "Rewrite a form in the canonical shape",
		Long: `Load a form, repairing what can be repaired, and print it in the canonical shape.

Legacy validation arrays and objects become a single validations object,
percentage widths gain a matching column span, duplicate option values and ids
are fixed, markup is stripped from display strings and formula dependency
lists are recomputed.

Examples:
  formdesigner normalize legacy.json -o form.json
  formdesigner normalize form.json --legacy-rules`,
		Args: cobra.ExactArgs(1),
		RunE: runNormalize,
	}
	cmd.Flags().StringP("output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().Bool("legacy-rules", false, "Also emit the validationRules array for older renderers")
	cmd.Flags().Bool("compact", false, "Emit compact JSON")
	return cmd
}

func runNormalize(cmd *cobra.Command, args []string) error {
	env, err := RequireEnv(cmd.Context())
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	legacy, _ := cmd.Flags().GetBool("legacy-rules")
	compact, _ := cmd.Flags().GetBool("compact")

	st, err := openStore(env, args[0])
	if err != nil {
		return err
	}

	var options []schema.EncodeOption
	if !compact {
		options = append(options, schema.WithIndent("  "))
	}
	if legacy {
		options = append(options, schema.WithLegacyRules())
	}
	data, err := schema.Encode(st.Form(), options...)
	if err != nil {
		return err
	}
	return writeOutput(cmd, output, append(data, '\n'))
}
