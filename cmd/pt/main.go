// Package main provides the pt CLI entry point.
package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	dataFlag    string
	writable    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pt",
	Short: "INSPIRE-HEP citation graph crawler and semantic index",
	Long: `pt crawls the INSPIRE-HEP citation graph into a local store and
builds a semantic index over the abstracts it collected.

The store is opened read-only unless --writable is given. All commands
output JSON by default for easy integration with other tools.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().StringVar(&dataFlag, "data", "", "Data directory (default $PAPER_TOOLS_DATA_PATH or ~/.local/share/paper_tools)")
	rootCmd.PersistentFlags().BoolVarP(&writable, "writable", "w", false, "Open the store for writing")
	rootCmd.Version = Version
}

// setup loads .env and installs the stderr logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("reading .env", "error", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
