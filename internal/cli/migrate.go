package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cortexdb/query-core/internal/migrate"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the core relations on the configured backend",
	Long: `Probes the backend for the seven core relations and creates any that
are missing. Safe to run repeatedly: existing relations are left
untouched.`,
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

		var compiler schema.Compiler = schema.DatalogCompiler{}
		if be.Dialect() == querycond.DialectGraph {
			compiler = schema.GraphCompiler{}
		}
		runner := migrate.Runner{Backend: be, Compiler: compiler}
		if err := runner.Up(ctx); err != nil {
			return err
		}

		version, err := runner.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
