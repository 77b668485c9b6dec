// Command retrace searches the conversation history, memory files, and
// plans that local coding agents leave on disk.
package main

import (
	"os"

	"github.com/retracehq/retrace/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
