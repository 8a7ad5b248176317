package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/isodalton/pkg/core"
	"github.com/ChrisMcGann/isodalton/pkg/filter"
	"github.com/ChrisMcGann/isodalton/pkg/reader/batch"
	"github.com/ChrisMcGann/isodalton/pkg/writer/sqlite"
	"github.com/ChrisMcGann/isodalton/pkg/writer/text"
)

// BatchOptions holds flags for the batch command
type BatchOptions struct {
	InputFile  string
	OutputFile string
	ReportFile string
	Filter     filter.Config // a charge in the batch file replaces Filter.Charge
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compute distributions for every molecule of a batch file",
		Long: `Compute isotopic distributions for a list of molecules and write them to a
SQLite database.

The input has one molecule per line, comma or tab separated:
  Name,Formula,Charge
  water,H2O
  angiotensin,peptide:DRVYIHPFHL,2

Examples:
  # Default engine settings
  isodalton batch --in molecules.csv --out molecules.db

  # Keep the 20 most probable states per molecule, also print a report
  isodalton batch --in molecules.csv --out molecules.db --top-n 20 --report molecules.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "in", "i", "", "Input batch file (required)")
	cmd.Flags().StringVarP(&opts.OutputFile, "out", "o", "", "Output database file (required)")
	cmd.Flags().StringVar(&opts.ReportFile, "report", "", "Also write a text report to this file")
	addEngineFlags(cmd.Flags())
	addFilterFlags(cmd.Flags(), &opts.Filter)

	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runBatch(rootOpts *RootOptions, opts *BatchOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	if err := opts.Filter.Validate(); err != nil {
		return err
	}

	// Validate input file exists
	if _, err := os.Stat(opts.InputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", opts.InputFile)
	}

	cat, err := rootOpts.loadCatalog()
	if err != nil {
		return err
	}

	inFile, err := os.Open(opts.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader := batch.NewReader(inFile, cat)

	writer, err := sqlite.NewWriter(opts.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	var report *text.Writer
	if opts.ReportFile != "" {
		f, err := os.Create(opts.ReportFile)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		report = text.NewWriter(f, rootOpts.config.Precision)
	}

	fmt.Fprintf(out, "Computing %s to %s...\n", opts.InputFile, opts.OutputFile)
	fmt.Fprintf(out, "States: %d\n", rootOpts.config.States)
	fmt.Fprintf(out, "Domain: %s\n", rootOpts.config.Domain())

	// Process molecules
	count := 0
	skipped := 0

	for reader.Next() {
		entry := reader.Entry()

		fc := opts.Filter
		if entry.Charge > 0 {
			fc.Charge = entry.Charge
		}

		dist, err := computeDistribution(rootOpts, cat, entry.Molecule, entry.Name, &fc)
		if err != nil {
			if !skippable(err) {
				return fmt.Errorf("line %d (%s): %w", entry.Line, entry.Name, err)
			}
			fmt.Fprintf(errOut, "Warning: skipped %s (line %d): %v\n", entry.Name, entry.Line, err)
			skipped++
			continue
		}
		dist.Source = "batch"
		if entry.Peptide != "" {
			dist.Source = "batch peptide"
		}

		// Validate distribution
		if err := dist.Validate(); err != nil {
			fmt.Fprintf(errOut, "Warning: invalid distribution %s: %v\n", dist.Label(), err)
			skipped++
			continue
		}

		if err := writer.WriteDistribution(dist); err != nil {
			return fmt.Errorf("failed to write distribution %s: %w", dist.Label(), err)
		}
		if report != nil {
			if err := report.WriteDistribution(dist); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}

		count++
		if count%100 == 0 {
			fmt.Fprintf(out, "Processed %d molecules...\n", count)
		}
	}

	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	// Finalize database
	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	fmt.Fprintf(out, "\nBatch complete!\n")
	fmt.Fprintf(out, "Processed: %d molecules\n", count)
	if skipped > 0 {
		fmt.Fprintf(out, "Skipped: %d molecules\n", skipped)
	}
	fmt.Fprintf(out, "Output: %s\n", opts.OutputFile)

	return nil
}

// skippable reports errors that concern a single molecule
func skippable(err error) bool {
	return errors.Is(err, core.ErrInvalidInput) ||
		errors.Is(err, core.ErrAllocation) ||
		errors.Is(err, core.ErrNumericDegeneracy)
}
