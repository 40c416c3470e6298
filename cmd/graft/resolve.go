package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jward/graft"
	"github.com/jward/graft/internal/gitutil"
)

var flagAdd bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [PATH]",
	Short: "Re-merge the conflicted files of a git repository",
	Long: `Merges the index stages (ours, base, theirs) of every unmerged file under PATH
and overwrites the working tree file with the result. Files added on both
sides are merged against an empty base; files deleted on one side are skipped.

Exits with status 3 when conflicts remain.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&flagAdd, "add", false, "git add files that merged cleanly")
}

func runResolve(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), flagFormat, "resolve", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	scope := ""
	if len(args) > 0 {
		scope = args[0]
	}
	return resolveConflicts(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s, cwd, scope, flagAdd)
}

func resolveConflicts(ctx context.Context, w, errw io.Writer, s settings, cwd, scope string, add bool) error {
	fail := func(err error) error { return outputError(w, errw, s.format, "resolve", err) }

	root, err := gitutil.RepoRoot(ctx, cwd)
	if err != nil {
		return fail(err)
	}
	pathspec, err := scopeToPathspec(root, cwd, scope)
	if err != nil {
		return fail(err)
	}
	paths, err := gitutil.ListUnmergedFiles(ctx, root, pathspec)
	if err != nil {
		return fail(err)
	}

	var (
		jobs    []graft.Job
		jobPath []string
		results []CLIResolved
	)
	for _, p := range paths {
		stages, err := gitutil.Stages(ctx, root, p)
		if err != nil {
			return fail(err)
		}
		if !slices.Contains(stages, gitutil.StageOurs) || !slices.Contains(stages, gitutil.StageTheirs) {
			results = append(results, CLIResolved{Path: p, Status: resolvedSkipped, Reason: "deleted on one side"})
			continue
		}

		order := []int{gitutil.StageOurs, gitutil.StageTheirs}
		if slices.Contains(stages, gitutil.StageBase) {
			order = []int{gitutil.StageOurs, gitutil.StageBase, gitutil.StageTheirs}
		}
		contents := make([][]byte, len(order))
		for i, stage := range order {
			if contents[i], err = gitutil.ShowStage(ctx, root, stage, p); err != nil {
				return fail(err)
			}
		}
		jobs = append(jobs, graft.Job{
			Command:  "resolve",
			Contents: contents,
			Output:   filepath.Join(root, filepath.FromSlash(p)),
		})
		jobPath = append(jobPath, p)
	}

	var batchErr error
	if len(jobs) > 0 {
		engine, err := newEngine(s)
		if err != nil {
			return fail(err)
		}
		defer engine.Close()

		var reports []*graft.Report
		reports, batchErr = engine.MergeBatch(ctx, jobs)
		if reports == nil && batchErr != nil {
			return fail(batchErr)
		}

		var clean []string
		for i, r := range reports {
			res := CLIResolved{Path: jobPath[i], Status: "failed"}
			if r != nil && len(r.Files) == 1 {
				f := r.Files[0]
				res.Conflicts, res.Strategy, res.Reason = f.Conflicts, f.Strategy, f.Fallback
				res.Status = resolvedClean
				if f.Conflicts > 0 {
					res.Status = resolvedConflicts
				} else {
					clean = append(clean, jobPath[i])
				}
			}
			results = append(results, res)
		}
		if add {
			if err := gitutil.Add(ctx, root, clean...); err != nil {
				return fail(err)
			}
		}
	}

	slices.SortFunc(results, func(a, b CLIResolved) int { return cmp.Compare(a.Path, b.Path) })
	if err := outputResult(w, s.format, CLIResult{Command: "resolve", Results: results}); err != nil {
		return err
	}
	if batchErr != nil {
		return batchErr
	}

	fmt.Fprintf(errw, "Resolved %d of %d unmerged files\n", countStatus(results, resolvedClean), len(paths))
	if countStatus(results, resolvedClean) < len(results) {
		return errConflicts
	}
	return nil
}

// scopeToPathspec turns a path given relative to cwd into a pathspec
// relative to the repository root.
func scopeToPathspec(root, cwd, scope string) (string, error) {
	if scope == "" {
		scope = cwd
	}
	if !filepath.IsAbs(scope) {
		scope = filepath.Join(cwd, scope)
	}
	rel, err := filepath.Rel(root, scope)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", scope, err)
	}
	return filepath.ToSlash(rel), nil
}

func countStatus(results []CLIResolved, status string) int {
	return lo.CountBy(results, func(r CLIResolved) bool { return r.Status == status })
}
