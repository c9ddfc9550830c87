// Command tablegrid validates table definitions, renders table views,
// replays UI scenarios and serves dataset pages.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tablegrid/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
