package main

import (
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jward/graft/internal/store"
)

var (
	flagRunID int64
	flagLimit int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recorded merge runs",
	Long:  "Lists the runs recorded with --stats-db, newest first, or shows the files and operations of one run.",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Int64Var(&flagRunID, "run", 0, "show the files and operations of this run")
	statsCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of runs to list (0 for all)")
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), flagFormat, "stats", err)
	}
	return showStats(cmd.OutOrStdout(), cmd.ErrOrStderr(), s, flagRunID, flagLimit)
}

// openStore opens the run database of the settings, which must exist.
func openStore(s settings) (*store.Store, error) {
	dbPath := s.statsDB
	if dbPath == "" {
		dbPath = defaultStatsDB(s.repoRoot)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no run history at %s (merge with --stats-db first)", dbPath)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func showStats(w, errw io.Writer, s settings, runID int64, limit int) error {
	fail := func(err error) error { return outputError(w, errw, s.format, "stats", err) }

	st, err := openStore(s)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	if runID == 0 {
		runs, err := st.Runs(limit)
		if err != nil {
			return fail(err)
		}
		return outputResult(w, s.format, CLIResult{
			Command: "stats",
			Results: lo.Map(runs, func(r *store.Run, _ int) CLIRun { return runToCLI(r) }),
		})
	}

	run, err := st.Run(runID)
	if err != nil {
		return fail(err)
	}
	if run == nil {
		return fail(fmt.Errorf("no run with id %d", runID))
	}
	results, err := st.FileResults(runID)
	if err != nil {
		return fail(err)
	}
	detail := CLIRunDetail{Run: runToCLI(run)}
	for _, fr := range results {
		ops, err := st.Operations(fr.ID)
		if err != nil {
			return fail(err)
		}
		rec := fileRecordToCLI(fr)
		rec.Operations = lo.Map(ops, func(op *store.Operation, _ int) string {
			return fmt.Sprintf("OP%d: %s %s", op.Seq, op.Name, op.Detail)
		})
		detail.Files = append(detail.Files, rec)
	}
	return outputResult(w, s.format, CLIResult{Command: "stats", Results: detail})
}

func runToCLI(r *store.Run) CLIRun {
	return CLIRun{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Command:    r.Command,
		Type:       r.MergeType,
		Inputs:     r.Inputs,
		Output:     r.Output,
		Strategy:   r.Strategy,
		Files:      r.Files,
		Conflicts:  r.Conflicts,
		Status:     r.Status,
		Error:      r.Error,
	}
}

func fileRecordToCLI(fr *store.FileResult) CLIFileRecord {
	return CLIFileRecord{
		ID:         fr.ID,
		Path:       fr.Path,
		Strategy:   fr.Strategy,
		Language:   fr.Language,
		Fallback:   fr.Fallback,
		Conflicts:  fr.Conflicts,
		Added:      fr.Added,
		Deleted:    fr.Deleted,
		Merged:     fr.Merged,
		Matched:    fr.MatcherTotal,
		DurationMS: fr.DurationMS,
	}
}
