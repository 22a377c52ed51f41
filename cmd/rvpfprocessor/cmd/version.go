package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evalgo/rvpf/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print build and dependency version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetBuildInfo()
		fmt.Printf("%s %s (go %s)\n", info.MainModule, version.GetModuleVersion(), info.GoVersion)
		for _, dep := range info.Dependencies {
			suffix := ""
			if dep.Replace != "" {
				suffix = " (replaced by " + dep.Replace + ")"
			}
			fmt.Printf("  %s@%s%s\n", dep.Path, dep.Version, suffix)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
