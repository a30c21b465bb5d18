package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sketchwire",
		Short: "Collaborative drawing canvas relay server",
		Long: `Sketchwire synchronizes a shared drawing canvas across connected
clients in real time.

Clients connect over WebSocket (with a long-polling fallback), join
with a display name, and receive the full canvas state. Strokes, text
annotations, and cursor positions are relayed live; the canvas itself
survives restarts through a pluggable snapshot backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
