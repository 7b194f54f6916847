package command

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formdesigner/pkg/schema"
	"github.com/goliatone/go-formdesigner/pkg/tui"
)

func newDesignCommand(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design [form.json]",
		Short: "Edit a form interactively in the terminal",
		Long: `Open the terminal designer on a form (or on an empty form).

Sections, fields, formulas, option sources and catalog templates are edited
through prompts; every change can be undone from the menu. Choosing Done
validates the form and writes it. By default the input file is overwritten;
use -o to write elsewhere or "-o -" for stdout. Without an input file the
form goes to stdout. Nothing is written when the session is aborted or the
form has save-blocking problems.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesign(cmd, args, cfg.driver)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Where to write the result (default: the input file)")
	return cmd
}

func runDesign(cmd *cobra.Command, args []string, driver tui.PromptDriver) error {
	env, err := RequireEnv(cmd.Context())
	if err != nil {
		return err
	}
	input := ""
	if len(args) == 1 {
		input = args[0]
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = input
	}

	st, err := openStore(env, input)
	if err != nil {
		return err
	}
	session, err := tui.New(st,
		tui.WithPromptDriver(driver),
		tui.WithOutput(cmd.OutOrStdout()),
		tui.WithLogger(env.Logger),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := session.Run(ctx); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			env.Logger.Info("design session aborted, nothing written")
			return nil
		}
		return err
	}

	if _, err := st.ValidateForSave(); err != nil {
		return fmt.Errorf("not saved: %w", err)
	}
	data, err := schema.Encode(st.Form(), schema.WithIndent("  "))
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, output, append(data, '\n')); err != nil {
		return err
	}
	if output != "" && output != "-" {
		env.Logger.Info("form written", slog.String("path", output))
	}
	return nil
}
