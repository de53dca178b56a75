// Command leanspec is the CLI entry point for the spec engine: create,
// inspect, validate, and relate specs, supervise AI-assistant sessions
// against them, and launch the MCP/HTTP surfaces.
package main

import (
	"fmt"
	"os"

	"github.com/leanspec/leanspec/cmd/leanspec/commands"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	commands.Version = Version
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "leanspec: %v\n", err)
		os.Exit(1)
	}
}
