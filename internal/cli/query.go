package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/querybuilder"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run structural queries against the call graph",
}

// withBackend handles the shared setup of every query subcommand.
func withBackend(cmd *cobra.Command, run func(ctx context.Context, be backend.Backend, project string) (interface{}, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	result, err := run(cmd.Context(), be, cfg.Project)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func optionalArity(changed bool, arity int64) *int64 {
	if !changed {
		return nil
	}
	return &arity
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newCallsCmd(use, short string, direction querybuilder.Direction) *cobra.Command {
	var (
		useRegex bool
		arity    int64
		limit    int
	)
	cmd := &cobra.Command{
		Use:   use + " <module-pattern> <function-pattern>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindCalls(ctx, be, querybuilder.CallsQueryBuilder{
					Direction:       direction,
					ModulePattern:   args[0],
					FunctionPattern: args[1],
					Arity:           optionalArity(cmd.Flags().Changed("arity"), arity),
					Project:         project,
					UseRegex:        useRegex,
					Limit:           limit,
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().Int64VarP(&arity, "arity", "a", 0, "filter by arity")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newDependenciesCmd(use, short string, direction querybuilder.DependencyDirection) *cobra.Command {
	var (
		useRegex bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:   use + " <module-pattern>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindDependencies(ctx, be, querybuilder.DependenciesQueryBuilder{
					Direction:     direction,
					ModulePattern: args[0],
					Project:       project,
					UseRegex:      useRegex,
					Limit:         limit,
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newPathCmd() *cobra.Command {
	var (
		toArity  int64
		maxDepth int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "path <from-module> <from-function> <to-module> <to-function>",
		Short: "Find call paths between two functions",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindPaths(ctx, be, querybuilder.PathQueryBuilder{
					FromModule:   args[0],
					FromFunction: args[1],
					ToModule:     args[2],
					ToFunction:   args[3],
					ToArity:      optionalArity(cmd.Flags().Changed("to-arity"), toArity),
					Project:      project,
					MaxDepth:     maxDepth,
					Limit:        limit,
				})
			})
		},
	}
	cmd.Flags().Int64Var(&toArity, "to-arity", 0, "target arity")
	cmd.Flags().IntVarP(&maxDepth, "max-depth", "d", 10, "maximum path length")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum paths")
	return cmd
}

func newTraceCmd() *cobra.Command {
	var (
		useRegex bool
		arity    int64
		maxDepth int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "trace <module-pattern> <function-pattern>",
		Short: "Trace call chains backwards from a target function",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.ReverseTraceCalls(ctx, be, querybuilder.ReverseTraceQueryBuilder{
					ModulePattern:   args[0],
					FunctionPattern: args[1],
					Arity:           optionalArity(cmd.Flags().Changed("arity"), arity),
					Project:         project,
					UseRegex:        useRegex,
					MaxDepth:        maxDepth,
					Limit:           limit,
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().Int64VarP(&arity, "arity", "a", 0, "filter by arity")
	cmd.Flags().IntVarP(&maxDepth, "max-depth", "d", 10, "maximum trace depth")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newUnusedCmd() *cobra.Command {
	var (
		module           string
		useRegex         bool
		privateOnly      bool
		publicOnly       bool
		excludeGenerated bool
		limit            int
	)
	cmd := &cobra.Command{
		Use:   "unused",
		Short: "Find functions that are never called",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindUnused(ctx, be, querybuilder.UnusedQueryBuilder{
					Project:          project,
					ModulePattern:    optionalString(module),
					UseRegex:         useRegex,
					PrivateOnly:      privateOnly,
					PublicOnly:       publicOnly,
					ExcludeGenerated: excludeGenerated,
					Limit:            limit,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "filter by module pattern")
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().BoolVar(&privateOnly, "private-only", false, "private functions and macros only")
	cmd.Flags().BoolVar(&publicOnly, "public-only", false, "public functions and macros only")
	cmd.Flags().BoolVar(&excludeGenerated, "exclude-generated", false, "drop compiler-generated functions")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newDuplicatesCmd() *cobra.Command {
	var (
		module           string
		useRegex         bool
		useExact         bool
		excludeGenerated bool
	)
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find functions with duplicate implementations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindDuplicates(ctx, be, querybuilder.DuplicatesQueryBuilder{
					Project:          project,
					ModulePattern:    optionalString(module),
					UseRegex:         useRegex,
					UseExact:         useExact,
					ExcludeGenerated: excludeGenerated,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "filter by module pattern")
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().BoolVar(&useExact, "exact", false, "match by source hash instead of AST hash")
	cmd.Flags().BoolVar(&excludeGenerated, "exclude-generated", false, "drop generated functions")
	return cmd
}

func newLargeCmd() *cobra.Command {
	var (
		module           string
		useRegex         bool
		minLines         int64
		includeGenerated bool
		limit            int
	)
	cmd := &cobra.Command{
		Use:   "large",
		Short: "Find functions larger than a minimum line count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindLargeFunctions(ctx, be, querybuilder.LargeFunctionsQueryBuilder{
					MinLines:         minLines,
					ModulePattern:    optionalString(module),
					Project:          project,
					UseRegex:         useRegex,
					IncludeGenerated: includeGenerated,
					Limit:            limit,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "filter by module pattern")
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().Int64Var(&minLines, "min-lines", 50, "minimum function length in lines")
	cmd.Flags().BoolVar(&includeGenerated, "include-generated", false, "include generated functions")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newReturnsCmd() *cobra.Command {
	var (
		module   string
		useRegex bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "returns <pattern>",
		Short: "Find specs whose return type matches a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindReturns(ctx, be, querybuilder.ReturnsQueryBuilder{
					Pattern:       args[0],
					Project:       project,
					UseRegex:      useRegex,
					ModulePattern: optionalString(module),
					Limit:         limit,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "filter by module pattern")
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		functions bool
		useRegex  bool
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search modules or functions by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				b := querybuilder.SearchQueryBuilder{
					Pattern:  args[0],
					Project:  project,
					UseRegex: useRegex,
					Limit:    limit,
				}
				if functions {
					return querybuilder.SearchForFunctions(ctx, be, b)
				}
				return querybuilder.SearchForModules(ctx, be, b)
			})
		},
	}
	cmd.Flags().BoolVarP(&functions, "functions", "f", false, "search function names instead of modules")
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "treat patterns as regular expressions")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum results")
	return cmd
}

func newClustersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Group modules into namespace clusters with connectivity metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, be backend.Backend, project string) (interface{}, error) {
				return querybuilder.FindClusters(ctx, be, querybuilder.ClustersQueryBuilder{Project: project})
			})
		},
	}
	return cmd
}

func init() {
	queryCmd.AddCommand(
		newCallsCmd("calls-from", "Find calls made by the matched functions", querybuilder.DirectionFrom),
		newCallsCmd("calls-to", "Find calls made to the matched functions", querybuilder.DirectionTo),
		newDependenciesCmd("depends-on", "Find modules the matched module depends on", querybuilder.DirectionOutgoing),
		newDependenciesCmd("depended-by", "Find modules depending on the matched module", querybuilder.DirectionIncoming),
		newPathCmd(),
		newTraceCmd(),
		newUnusedCmd(),
		newDuplicatesCmd(),
		newLargeCmd(),
		newReturnsCmd(),
		newSearchCmd(),
		newClustersCmd(),
	)
	rootCmd.AddCommand(queryCmd)
}
