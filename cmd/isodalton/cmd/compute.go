package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ChrisMcGann/isodalton/pkg/catalog"
	"github.com/ChrisMcGann/isodalton/pkg/config"
	"github.com/ChrisMcGann/isodalton/pkg/core"
	"github.com/ChrisMcGann/isodalton/pkg/distribution"
	"github.com/ChrisMcGann/isodalton/pkg/filter"
	"github.com/ChrisMcGann/isodalton/pkg/writer/sqlite"
	"github.com/ChrisMcGann/isodalton/pkg/writer/text"
)

// ComputeOptions holds flags for the compute command
type ComputeOptions struct {
	Formula    string
	Peptide    string
	Name       string
	OutputFile string
	Filter     filter.Config
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{}

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the isotopic distribution of one molecule",
		Long: `Compute the isotopic mass distribution of a molecule given as an elemental
formula or a peptide sequence and print it as a text report.

Examples:
  # Insulin with the default beam of 1000 states
  isodalton compute --formula "C 254 H 378 N 65 O 75 S 6"

  # Peptide at charge 2, 50 states, peaks above 1% of the base peak
  isodalton compute --peptide DRVYIHPFHL --charge 2 --states 50 --cutoff 1

  # Log10 arithmetic, unit-resolution bins, saved to SQLite
  isodalton compute --formula C520H817N139O147S8 --log10 --bin 1 --out titin.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Formula, "formula", "f", "", "Elemental formula, e.g. \"C6H12O6\" or \"C 6 H 12 O 6\"")
	cmd.Flags().StringVarP(&opts.Peptide, "peptide", "p", "", "Peptide sequence in one-letter amino acid codes")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Name used in reports (default: the formula or sequence)")
	cmd.Flags().StringVarP(&opts.OutputFile, "out", "o", "", "Also write the distribution to this SQLite database")
	addEngineFlags(cmd.Flags())
	addFilterFlags(cmd.Flags(), &opts.Filter)

	cmd.MarkFlagsOneRequired("formula", "peptide")
	cmd.MarkFlagsMutuallyExclusive("formula", "peptide")

	return cmd
}

// addEngineFlags registers the flags bound to config keys
func addEngineFlags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.Int("states", def.States, "Number of states kept after every step (beam width)")
	fs.Bool("log10", def.Log10, "Use log10 probability arithmetic (for very large molecules)")
	fs.Int("max-buffer-states", def.MaxBufferStates, "Ceiling on working buffer entries")
	fs.Int("precision", def.Precision, "Decimals printed for masses and probabilities")
}

// addFilterFlags registers post-processing flags
func addFilterFlags(fs *pflag.FlagSet, cfg *filter.Config) {
	fs.IntVar(&cfg.Charge, "charge", 0, "Report m/z at this charge state (0 = neutral masses)")
	fs.IntVar(&cfg.TopN, "top-n", 0, "Keep only top N most probable states (0 = no limit)")
	fs.Float64Var(&cfg.ProbabilityCutoff, "cutoff", 0, "Probability cutoff as % of the most probable state (0 = no cutoff)")
	fs.Float64Var(&cfg.MinMass, "min-mass", 0, "Drop states below this mass or m/z (0 = no bound)")
	fs.Float64Var(&cfg.MaxMass, "max-mass", 0, "Drop states above this mass or m/z (0 = no bound)")
	fs.Float64Var(&cfg.BinWidth, "bin", 0, "Sum states into bins of this width (0 = no binning)")
	fs.StringVar(&cfg.Order, "sort", filter.OrderMass, "Output order: mass or probability")
}

func runCompute(rootOpts *RootOptions, opts *ComputeOptions, cmd *cobra.Command) error {
	if err := opts.Filter.Validate(); err != nil {
		return err
	}

	cat, err := rootOpts.loadCatalog()
	if err != nil {
		return err
	}

	mol, source, err := opts.molecule(cat)
	if err != nil {
		return err
	}

	dist, err := computeDistribution(rootOpts, cat, mol, opts.Name, &opts.Filter)
	if err != nil {
		return err
	}
	dist.Source = source

	report := text.NewWriter(cmd.OutOrStdout(), rootOpts.config.Precision)
	if err := report.WriteDistribution(dist); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if opts.OutputFile != "" {
		if err := writeDatabase(opts.OutputFile, dist); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nOutput: %s\n", opts.OutputFile)
	}

	return nil
}

// molecule parses the formula or peptide flag
func (o *ComputeOptions) molecule(cat *catalog.Catalog) (core.Molecule, string, error) {
	if o.Peptide != "" {
		mol, err := core.PeptideMolecule(o.Peptide)
		if err != nil {
			return core.Molecule{}, "", err
		}
		if o.Name == "" {
			o.Name = o.Peptide
		}
		return mol, "peptide", nil
	}

	mol, err := core.ParseFormula(o.Formula, cat)
	if err != nil {
		return core.Molecule{}, "", err
	}
	return mol, "formula", nil
}

// computeDistribution runs the engine with the configured options and
// applies the filters to the result
func computeDistribution(rootOpts *RootOptions, cat *catalog.Catalog, mol core.Molecule, name string, fc *filter.Config) (*core.Distribution, error) {
	cfg := rootOpts.config
	res, err := distribution.Compute(mol, cat, distribution.Options{
		BeamWidth:       cfg.States,
		Domain:          cfg.Domain(),
		MaxBufferStates: cfg.MaxBufferStates,
		Logger:          rootOpts.logger,
	})
	if err != nil {
		return nil, err
	}

	rootOpts.logger.Info("distribution span",
		"formula", mol.String(),
		"lightest", res.Span.Lightest,
		"heaviest", res.Span.Heaviest,
		"most_probable_log10", res.Span.MostProbableLog10,
		"least_probable_log10", res.Span.LeastProbableLog10)

	dist := res.Distribution(name, mol)
	filter.RemoveZeroProbability(dist)
	if err := fc.Apply(dist); err != nil {
		return nil, err
	}
	return dist, nil
}

// writeDatabase writes a single distribution to a new SQLite database
func writeDatabase(path string, dist *core.Distribution) error {
	writer, err := sqlite.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteDistribution(dist); err != nil {
		return fmt.Errorf("failed to write distribution %s: %w", dist.Label(), err)
	}
	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	return nil
}
