// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/isodalton/pkg/catalog"
	"github.com/ChrisMcGann/isodalton/pkg/config"
)

// RootOptions holds global flags and the state loaded before any command runs.
type RootOptions struct {
	ConfigFile string

	config *config.Config
	logger *slog.Logger
}

// NewRootCommand creates the root command for the isodalton CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "isodalton",
		Short: "isodalton - Isotopic mass distribution calculator",
		Long: `isodalton computes the isotopic mass distribution of molecules from their
elemental composition and per-element isotope tables.

The distribution is built one atom at a time. Near-identical masses are
merged and only the most probable states are kept after every step, so
even large molecules finish quickly with:
- Formula or peptide sequence input
- Linear or log10 probability arithmetic
- Custom NIST isotope tables and YAML composition overrides
- Filtering, binning and m/z conversion
- Text reports and SQLite output`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "Config file (default: ./isodalton.yaml if present)")
	pf.String("catalog", "", "NIST isotope table (default: built-in table)")
	pf.String("overrides", "", "YAML file overriding isotope masses or fractions")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")

	// Add subcommands
	cmd.AddCommand(NewComputeCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewElementsCommand(opts))

	return cmd
}

// Execute runs the CLI
func Execute() error {
	return NewRootCommand().Execute()
}

// load reads the configuration and sets up logging
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}

	o.config = cfg
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// loadCatalog builds the isotope catalog from the configured table and
// applies the configured overrides
func (o *RootOptions) loadCatalog() (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if o.config.Catalog != "" {
		cat, err = catalog.LoadNISTFile(o.config.Catalog)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load isotope catalog: %w", err)
	}
	o.logger.Debug("catalog loaded", "elements", cat.Len(), "source", catalogSource(o.config.Catalog))

	if o.config.Overrides == "" {
		return cat, nil
	}

	changes, err := cat.ApplyOverridesFile(o.config.Overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}
	for _, c := range changes {
		o.logger.Info("isotope override", "change", c.String())
	}
	if normalized := cat.Normalize(); len(normalized) > 0 {
		o.logger.Info("isotope fractions normalized", "elements", normalized)
	}

	return cat, nil
}

func catalogSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
