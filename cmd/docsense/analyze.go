package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank document sections for a persona and job to be done",
	Long:  "Read a collection JSON (documents, persona.role, job_to_be_done.task), rank the sections of the listed documents and write the result JSON.",
	RunE:  runAnalyze,
}

var (
	analyzeInput     string
	analyzeDir       string
	analyzeOut       string
	analyzeTimestamp string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "Path to collection JSON (required)")
	analyzeCmd.Flags().StringVarP(&analyzeDir, "dir", "d", "", "Directory holding the documents (defaults to the input's directory)")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Path to output JSON file (defaults to stdout)")
	analyzeCmd.Flags().StringVar(&analyzeTimestamp, "timestamp", "", "Processing timestamp to record in the output metadata")

	if err := analyzeCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	coll, err := loadCollection(analyzeInput)
	if err != nil {
		return err
	}
	dir := analyzeDir
	if dir == "" {
		dir = filepath.Dir(analyzeInput)
	}
	req, err := coll.Request(dir)
	if err != nil {
		return err
	}
	req.RunID = uuid.NewString()
	req.Timestamp = analyzeTimestamp

	engine, err := newEngine()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := engine.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "Warning: %s: %s: %s\n", f.DocumentID, f.Kind, f.Message)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if analyzeOut == "" {
		_, err = fmt.Fprintln(os.Stdout, string(out))
		return err
	}
	if err := os.WriteFile(analyzeOut, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d ranked sections to %s\n", len(res.RankedSections), analyzeOut)
	return nil
}
