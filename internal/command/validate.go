package command

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ErrWarnings is returned by validate --strict when only warnings were found.
var ErrWarnings = errors.New("command: form has warnings")

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <form.json>",
		Short: "Check a form for save-blocking problems and warnings",
		Long: `Check a form the way the designer does before saving.

Missing root identifiers and circular formulas block the save and make the
command fail. Invalid formula syntax, duplicate field names, choice fields
without options and MASTER/LOOKUP fields without a source are warnings.

Examples:
  formdesigner validate form.json
  formdesigner validate form.json --strict -f json`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
	formatFlag(cmd)
	cmd.Flags().Bool("strict", false, "Fail on warnings too")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	env, err := RequireEnv(cmd.Context())
	if err != nil {
		return err
	}
	format, err := getFormat(cmd)
	if err != nil {
		return err
	}
	strict, _ := cmd.Flags().GetBool("strict")

	st, err := openStore(env, args[0])
	if err != nil {
		return err
	}
	report, saveErr := st.ValidateForSave()

	out := cmd.OutOrStdout()
	if format != FormatText {
		if err := writeData(out, format, report); err != nil {
			return err
		}
	} else if len(report.Issues) == 0 {
		fmt.Fprintf(out, "%s: ok\n", args[0])
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEVERITY\tCODE\tFIELD\tMESSAGE")
		for _, issue := range report.Issues {
			field := issue.FieldID
			if field == "" {
				field = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", issue.Severity, issue.Code, field, issue.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if saveErr != nil {
		return saveErr
	}
	if strict && len(report.Issues) > 0 {
		return fmt.Errorf("%w: %d issue(s)", ErrWarnings, len(report.Issues))
	}
	return nil
}
