// Command simcore runs the frame engine, its scenarios and journal tools.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/simcore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
