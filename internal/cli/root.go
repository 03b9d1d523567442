// Package cli wires the cobra command surface: backend selection from
// config, migrations, ingestion, and one subcommand per query family.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/backend/datalog"
	"github.com/cortexdb/query-core/internal/backend/graphdb"
	"github.com/cortexdb/query-core/internal/config"
	"github.com/cortexdb/query-core/internal/cortexlog"
)

var (
	cfgFile     string
	verbose     bool
	backendName string
	project     string
)

var rootCmd = &cobra.Command{
	Use:   "cortexdb",
	Short: "Query and ingestion core of the cortexdb code-intelligence database",
	Long: `cortexdb answers structural questions over an extracted call graph:
what calls X, what does X call, is there a path from A to B, which
functions are unused, large, or duplicated. It stores the graph in one
of two backends: an embedded Datalog engine or PostgreSQL with a graph
extension.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .cortexdb/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "storage backend: datalog or graph")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "project namespace")

	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".cortexdb")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CORTEXDB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration and initializes
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	} else if parsed, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		level = parsed
	}
	if err := cortexlog.Init(level, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend constructs the configured backend.
func openBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case "graph":
		be, err := graphdb.New(graphdb.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		return be, nil
	default:
		return datalog.NewEngine(datalog.DefaultConfig()), nil
	}
}
