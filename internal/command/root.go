// Package command implements the formdesigner CLI.
package command

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formdesigner"
	"github.com/goliatone/go-formdesigner/pkg/catalog"
	"github.com/goliatone/go-formdesigner/pkg/store"
	"github.com/goliatone/go-formdesigner/pkg/tui"
)

// Version is set at build time.
var Version = "dev"

type rootConfig struct {
	verbose     bool
	catalogPath string
	noBuiltin   bool
	driver      tui.PromptDriver
}

// RootOption customises NewRootCommand.
type RootOption func(*rootConfig)

// WithPromptDriver makes the design command prompt through driver instead
// of the terminal.
func WithPromptDriver(driver tui.PromptDriver) RootOption {
	return func(cfg *rootConfig) {
		cfg.driver = driver
	}
}

// NewRootCommand builds the formdesigner command tree.
func NewRootCommand(options ...RootOption) *cobra.Command {
	cfg := &rootConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	root := &cobra.Command{
		Use:   "formdesigner",
		Short: "formdesigner - design, check and evaluate form schemas",
		Long: `formdesigner works with the JSON form schemas produced by the form designer.

It validates forms before they are saved, rewrites legacy documents into the
canonical shape, evaluates computed (formula) fields, reports formula
dependencies and opens an interactive terminal designer.

Catalog files (master types, dropdown options, lookup sources, existing forms
and section templates) are JSON or YAML. The built-in section templates are
merged in unless --no-builtin is set.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if cfg.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cat, err := loadCatalog(cfg)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			logger.Debug("catalog loaded",
				slog.Int("masterTypes", len(cat.MasterTypes)),
				slog.Int("forms", len(cat.Forms)),
				slog.Int("templates", len(cat.SectionTemplates)))

			cmd.SetContext(WithEnv(cmd.Context(), &Env{Logger: logger, Catalog: cat}))
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().StringVar(&cfg.catalogPath, "catalog", "", "Catalog file or directory (JSON/YAML)")
	root.PersistentFlags().BoolVar(&cfg.noBuiltin, "no-builtin", false, "Do not merge the built-in section templates")

	root.AddCommand(
		newValidateCommand(),
		newNormalizeCommand(),
		newEvalCommand(),
		newDepsCommand(),
		newDesignCommand(cfg),
	)
	return root
}

func loadCatalog(cfg *rootConfig) (*catalog.Catalog, error) {
	if !cfg.noBuiltin {
		return formdesigner.LoadCatalog(cfg.catalogPath)
	}
	if cfg.catalogPath == "" {
		return &catalog.Catalog{}, nil
	}
	return catalog.LoadPath(cfg.catalogPath)
}

// openStore loads path into a store wired to env. An empty path opens an
// empty form.
func openStore(env *Env, path string) (*store.Store, error) {
	options := []store.Option{
		store.WithLogger(env.Logger),
		store.WithCatalog(env.Catalog),
	}
	if path == "" {
		return formdesigner.New(options...)
	}
	return formdesigner.LoadFile(path, options...)
}
