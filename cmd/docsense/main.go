// Command docsense extracts document outlines and ranks sections for a
// persona and task from the command line.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsense/internal/config"
	"github.com/dgallion1/docsense/internal/persona"
	"github.com/dgallion1/docsense/internal/pipeline"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "docsense",
	Short:         "Document outline extraction and persona-driven section ranking",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newEngine builds an engine from environment config. The CLI processes
// each file once, so no cache is attached.
func newEngine() (*pipeline.Engine, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var table *persona.Table
	var err error
	if cfg.PersonaTablePath != "" {
		table, err = persona.Load(cfg.PersonaTablePath)
	} else {
		table, err = persona.Default()
	}
	if err != nil {
		return nil, err
	}

	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	log := slog.New(slog.NewJSONHandler(w, nil))
	return pipeline.NewEngine(pipeline.OptionsFromConfig(cfg), table, nil, nil, log), nil
}
