// Package cli provides the vmctl command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/config"
	"github.com/advanced-rising/vanillameta/pkg/logging"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	configFile string
	verbose    bool
}

// NewRootCmd creates the vmctl root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "vmctl",
		Short: "vmctl - inspect and query vanillameta connections",
		Long: `vmctl probes database connections and runs ad-hoc queries through
the same connection layer the vanillameta server uses.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultConfigPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newEnginesCommand())
	rootCmd.AddCommand(newTestCommand(opts))
	rootCmd.AddCommand(newQueryCommand(opts))
	rootCmd.AddCommand(newDatabasesCommand(opts))

	return rootCmd
}

// logger returns a development logger with -v and a no-op logger otherwise,
// so command output stays clean.
func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := logging.NewLogger("local")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.LoadFrom(o.configFile, Version)
}
