package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// formatReportText formats a merge report: a summary line, the files and
// the directory operations.
func formatReportText(w io.Writer, r CLIReport) {
	fmt.Fprintf(w, "Merged %s (%s, %s): %d files, %d conflicts\n",
		r.Output, r.Type, r.Strategy, len(r.Files), r.Conflicts)
	if len(r.Files) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tSTRATEGY\tLANGUAGE\tCONFLICTS\tFALLBACK")
		for _, f := range r.Files {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.Path, f.Strategy, f.Language, f.Conflicts, f.Fallback)
		}
		tw.Flush()
	}
	if len(r.Operations) > 1 {
		fmt.Fprintln(w)
		for i, op := range r.Operations {
			fmt.Fprintf(w, "OP%d: %s\n", i+1, op)
		}
	}
}

// formatResolvedText formats resolve results as aligned columns.
func formatResolvedText(w io.Writer, results []CLIResolved) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSTATUS\tCONFLICTS\tSTRATEGY\tREASON")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Path, r.Status, r.Conflicts, r.Strategy, r.Reason)
	}
	tw.Flush()
}

// formatRunsText formats recorded runs as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCOMMAND\tSTRATEGY\tFILES\tCONFLICTS\tSTATUS\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Command, r.Strategy,
			r.Files, r.Conflicts, r.Status, r.Output)
	}
	tw.Flush()
}

// formatRunDetailText formats one run with its files and their operations.
func formatRunDetailText(w io.Writer, d CLIRunDetail) {
	r := d.Run
	fmt.Fprintf(w, "Run %d: %s %s -> %s\n", r.ID, r.Command, strings.Join(r.Inputs, " "), r.Output)
	fmt.Fprintf(w, "Status: %s, %d files, %d conflicts\n", r.Status, r.Files, r.Conflicts)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	if len(d.Files) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSTRATEGY\tLANGUAGE\tCONFLICTS\tADDED\tDELETED\tMERGED\tMATCHER\tMS")
	for _, f := range d.Files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			f.Path, f.Strategy, f.Language, f.Conflicts, f.Added, f.Deleted, f.Merged, f.Matched, f.DurationMS)
	}
	tw.Flush()
	for _, f := range d.Files {
		if len(f.Operations) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", f.Path)
		for _, op := range f.Operations {
			fmt.Fprintf(w, "  %s\n", op)
		}
	}
}

// outputResult writes a CLIResult to w in the given format.
func outputResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to w as a
// CLIResult envelope. In text mode it goes to errw.
func outputError(w, errw io.Writer, format, command string, err error) error {
	errorHandled.Store(true)
	if format == "text" {
		fmt.Fprintf(errw, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIReport:
		formatReportText(w, v)
	case []CLIResolved:
		formatResolvedText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case CLIRunDetail:
		formatRunDetailText(w, v)
	case string:
		fmt.Fprint(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
