// Command rvpfprocessor drives related-point notices through the
// trigger/select/compute/replicate/flush pipeline, adapted from the
// teacher's cli.RootCmd entrypoint (cli/root.go) down to a single
// os.Exit-on-error main, since the command tree itself now lives under
// cmd/rvpfprocessor/cmd instead of a standalone cli package.
package main

import (
	"fmt"
	"os"

	"github.com/evalgo/rvpf/cmd/rvpfprocessor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
