// Package main is the entry point for the livepipe CLI.
//
// Usage:
//
//	livepipe [flags] <command> [args]
//
// Commands:
//
//	config   - Configuration management (contexts, backends)
//	chat     - Interactive live chat against a backend
//	serve    - Run the WebSocket live gateway
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/livepipe/cmd/livepipe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
