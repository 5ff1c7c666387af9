// Command wsldb is the thin interactive client: an optional positional
// script path, falling back to reading stdin line-by-line, per spec 6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbui468/weaseldb/client"
)

var addr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wsldb [script]",
		Short: "WeaselDB client",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClient,
	}
	rootCmd.Flags().StringVar(&addr, "addr", "localhost:5432", "server address (host:port)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Close()

	var in *os.File
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening script %q: %w", args[0], err)
		}
		defer f.Close()
		in = f
	} else {
		in = os.Stdin
	}

	return client.RunScript(c, in, os.Stdout)
}
