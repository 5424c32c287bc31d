// Package main provides the storyboard CLI: it runs a storyboard file through
// the pipeline without the HTTP server and lists the layout presets.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storyboard",
		Short: "Render news videos from storyboard files",
		Long: `storyboard renders a narrated storyboard into a composited news video
using the same pipeline as the HTTP API. Configuration is read from the
environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newPresetsCmd())
	return root
}
