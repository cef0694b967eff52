// Command microsync runs the staged registration sync simulator.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/microsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "microsync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
