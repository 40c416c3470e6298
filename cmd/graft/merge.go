package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jward/graft"
)

var flagOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge LEFT [BASE] RIGHT -o OUTPUT",
	Short: "Merge two or three versions of a file or directory",
	Long: `Merges LEFT and RIGHT against their common BASE and writes the result to OUTPUT.
Without BASE the versions are merged against an empty base. Inputs may be
files or directories; directories are merged entry by entry.

Exits with status 3 when the result contains conflicts.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "file or directory to write the merge result to")
	_ = mergeCmd.MarkFlagRequired("output")
}

func runMerge(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), flagFormat, "merge", err)
	}
	return mergeInputs(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s, args, flagOutput)
}

func mergeInputs(ctx context.Context, w, errw io.Writer, s settings, inputs []string, output string) error {
	start := time.Now()

	engine, err := newEngine(s)
	if err != nil {
		return outputError(w, errw, s.format, "merge", err)
	}
	defer engine.Close()

	report, err := engine.Merge(ctx, inputs, output)
	if err != nil {
		return outputError(w, errw, s.format, "merge", err)
	}
	if err := outputResult(w, s.format, CLIResult{Command: "merge", Results: reportToCLI(report)}); err != nil {
		return err
	}

	fmt.Fprintf(errw, "Merged %s in %s\n", output, time.Since(start).Round(time.Millisecond))
	if report.HasConflicts() {
		return errConflicts
	}
	return nil
}

func reportToCLI(r *graft.Report) CLIReport {
	out := CLIReport{
		RunID:      r.RunID,
		Type:       r.Type.String(),
		Strategy:   r.Strategy,
		Output:     r.Output,
		Conflicts:  r.Conflicts,
		Files:      lo.Map(r.Files, func(f *graft.FileResult, _ int) CLIFile { return fileToCLI(f) }),
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Operations != nil {
		out.Operations = r.Operations.Lines
		out.Added = r.Operations.Added
		out.Deleted = r.Operations.Deleted
	}
	return out
}

func fileToCLI(f *graft.FileResult) CLIFile {
	return CLIFile{
		Path:       f.Path,
		Strategy:   f.Strategy,
		Language:   f.Language,
		Fallback:   f.Fallback,
		Conflicts:  f.Conflicts,
		Matched:    f.Counters.Total,
		Ordered:    f.Counters.Ordered,
		Unordered:  f.Counters.Unordered,
		DurationMS: f.Duration.Milliseconds(),
	}
}
