package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsense/internal/outline"
	"github.com/dgallion1/docsense/internal/pipeline"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>...",
	Short: "Extract the title and heading outline of documents",
	Long:  "Extract the title and H1/H2/H3 outline of each document. With --out, writes <name>.json per input into the directory; otherwise prints to stdout.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOutline,
}

var (
	outlineOutDir string
	outlineTree   bool
)

func init() {
	outlineCmd.Flags().StringVarP(&outlineOutDir, "out", "o", "", "Directory for <name>.json outputs")
	outlineCmd.Flags().BoolVar(&outlineTree, "tree", false, "Include the nested heading tree")

	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	if outlineOutDir != "" {
		if err := os.MkdirAll(outlineOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	failed := 0
	for _, path := range args {
		if err := outlineFile(cmd.Context(), engine, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}

func outlineFile(ctx context.Context, engine *pipeline.Engine, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	name := filepath.Base(path)
	c, err := engine.Outline(ctx, pipeline.Input{ID: name, Filename: name, Data: data})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(c.OutlineResult(outlineTree), "", "  ")
	if err != nil {
		return fmt.Errorf("encode outline: %w", err)
	}
	if outlineOutDir == "" {
		_, err = fmt.Fprintln(os.Stdout, string(out))
		return err
	}
	dest := filepath.Join(outlineOutDir, outline.FilenameStem(name)+".json")
	if err := os.WriteFile(dest, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write outline: %w", err)
	}
	return nil
}
