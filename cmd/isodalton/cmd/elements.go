package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ElementsOptions holds flags for the elements command
type ElementsOptions struct {
	Template string
	Symbols  []string
	Isotopes bool
}

// NewElementsCommand creates the elements command.
func NewElementsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ElementsOptions{}

	cmd := &cobra.Command{
		Use:   "elements",
		Short: "List the isotope catalog or write an override template",
		Long: `List the elements of the isotope catalog after overrides and normalization.

With --template, write a YAML override file holding the current mass and
fraction of every isotope. Edit the values and pass the file back with
--overrides.

Examples:
  isodalton elements
  isodalton elements --isotopes --symbols C,H,N,O,S
  isodalton elements --template overrides.yaml --symbols H,C`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runElements(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Template, "template", "", "Write an override template to this file")
	cmd.Flags().StringSliceVar(&opts.Symbols, "symbols", nil, "Restrict to these element symbols (comma separated)")
	cmd.Flags().BoolVar(&opts.Isotopes, "isotopes", false, "List every isotope")

	return cmd
}

func runElements(rootOpts *RootOptions, opts *ElementsOptions, cmd *cobra.Command) error {
	cat, err := rootOpts.loadCatalog()
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(opts.Symbols))
	for _, s := range opts.Symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	if opts.Template != "" {
		f, err := os.Create(opts.Template)
		if err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		defer f.Close()

		if err := cat.WriteOverrides(f, symbols...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template: %s\n", opts.Template)
		return nil
	}

	elements := cat.Elements()
	if len(symbols) > 0 {
		elements = elements[:0]
		for _, s := range symbols {
			e, err := cat.Lookup(s)
			if err != nil {
				return err
			}
			elements = append(elements, e)
		}
	}

	precision := rootOpts.config.Precision
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Z\tSymbol\tName\tAverage mass\tIsotopes")
	for _, e := range elements {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.*f\t%d\n", e.AtomicNumber, e.Symbol, e.Name, precision, e.AverageMass, len(e.Profile()))
		if !opts.Isotopes {
			continue
		}
		for _, iso := range e.Isotopes {
			fmt.Fprintf(tw, "\t%d%s\t\t%.*f\t%.*f\n", iso.MassNumber, e.Symbol, precision, iso.AtomicMass, precision, iso.Abundance)
		}
	}
	return tw.Flush()
}
