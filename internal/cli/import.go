package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cortexdb/query-core/internal/ingest"
)

var importQuiet bool

// barProgress binds the ingestion pipeline's progress callbacks to a
// terminal progress bar, one bar per section.
type barProgress struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

func (b *barProgress) OnSectionStart(section string, totalRows int) {
	if b.quiet || totalRows == 0 {
		b.bar = nil
		return
	}
	b.bar = progressbar.NewOptions(totalRows,
		progressbar.OptionSetDescription("Importing "+section),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)
}

func (b *barProgress) OnRowsWritten(section string, n int) {
	if b.bar != nil {
		_ = b.bar.Add(n)
	}
}

func (b *barProgress) OnSectionComplete(section string) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Println()
		b.bar = nil
	}
}

var importCmd = &cobra.Command{
	Use:   "import <call-graph.json>",
	Short: "Import an extracted call graph into the configured backend",
	Long: `Parses a call-graph JSON document and writes it into the backend:
modules, functions, clause locations, calls, struct fields, specs, and
types. The project's existing rows are cleared first; on the graph
backend the derived relationships are materialized after the vertices.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		be, err := openBackend(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if err := be.SetupBackend(ctx); err != nil {
			return err
		}

		importer := ingest.NewImporter(be)
		importer.Progress = &barProgress{quiet: importQuiet}

		result, err := importer.ImportFile(ctx, cfg.Project, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "modules:            %d\n", result.Modules)
		fmt.Fprintf(out, "functions:          %d\n", result.Functions)
		fmt.Fprintf(out, "function locations: %d\n", result.FunctionLocations)
		fmt.Fprintf(out, "calls:              %d\n", result.Calls)
		fmt.Fprintf(out, "struct fields:      %d\n", result.StructFields)
		fmt.Fprintf(out, "specs:              %d\n", result.Specs)
		fmt.Fprintf(out, "types:              %d\n", result.Types)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(importCmd)
}
