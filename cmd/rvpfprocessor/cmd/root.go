// Package cmd implements the rvpfprocessor command tree, adapted from the
// teacher's cli.RootCmd/initConfig (cli/root.go): the same
// flag > env var > config file > default precedence, via config.BindFlags
// and config.Init, with subcommands replacing the teacher's single
// runServer entrypoint.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/evalgo/rvpf/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rvpfprocessor",
	Short: "drives related-point notices through the compute/replicate pipeline",
	Long: `rvpfprocessor consumes point-value notices from a queue, resolves each
notice's metadata relations, runs every dependent point's behavior chain and
transform, and publishes the resulting updates back to the queue.

Configuration is resolved from, in order of precedence: command-line flags,
RVPF_-prefixed environment variables, a .rvpf.yaml config file, and built-in
defaults.`,
}

// Execute runs the root command, routing to whichever subcommand the
// caller invoked.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() { config.Init(cfgFile)() })
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.rvpf.yaml)")
	config.BindFlags(rootCmd)
}
