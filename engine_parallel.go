package graft

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/store"
)

// Job is one merge of a batch. Either Inputs names the versions on disk
// (left, right or left, base, right) or Contents holds them in memory; in
// the latter case Output is the file written, and its extension selects
// the language.
type Job struct {
	Command  string
	Inputs   []string
	Contents [][]byte
	Output   string

	mergeType artifact.MergeType
}

// prepare validates a job and fills in its merge type.
func (e *Engine) prepare(job *Job) error {
	if job.Command == "" {
		job.Command = "merge"
	}
	if job.Output == "" {
		return fmt.Errorf("graft: no output given")
	}
	n := len(job.Inputs)
	if job.Contents != nil {
		if n != 0 {
			return fmt.Errorf("graft: %s: both input paths and contents given", job.Output)
		}
		n = len(job.Contents)
	}
	mt, err := artifact.ParseMergeType(n)
	if err != nil {
		return fmt.Errorf("graft: %s: %w", job.Output, err)
	}
	job.mergeType = mt
	return nil
}

// MergeBatch runs independent merges using a three-phase pipeline:
//
//	Phase A (serial):   Validate every job.
//	Phase B (parallel): Merge via worker pool, each job with its own matcher.
//	Phase C (serial):   Commit the reports to the run store.
//
// Reports are returned in job order; the report of a failed job is nil.
// The errors of all failed jobs are returned together.
func (e *Engine) MergeBatch(ctx context.Context, jobs []Job) ([]*Report, error) {
	// ---- Phase A: Serial job preparation ----
	for i := range jobs {
		if err := e.prepare(&jobs[i]); err != nil {
			return nil, err
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	// ---- Phase B: Parallel merging ----
	reports := make([]*Report, len(jobs))
	errs := make([]error, len(jobs))

	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if !e.useParallel {
		numWorkers = 1
	}
	numWorkers = min(numWorkers, len(jobs))

	var g errgroup.Group
	g.SetLimit(numWorkers)
	for i := range jobs {
		g.Go(func() error {
			reports[i], errs[i] = e.run(ctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	// ---- Phase C: Serial commit ----
	var result *multierror.Error
	for i, job := range jobs {
		if err := e.record(job, reports[i], errs[i]); err != nil {
			result = multierror.Append(result, err)
		}
		if errs[i] != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", job.Output, errs[i]))
			reports[i] = nil
		}
	}
	return reports, result.ErrorOrNil()
}

// record writes a finished job to the run store. Failed jobs are recorded
// with the files merged before the failure.
func (e *Engine) record(job Job, report *Report, jobErr error) error {
	if e.store == nil || report == nil {
		return nil
	}
	start := time.Now()

	run := &store.Run{
		StartedAt:  report.StartedAt,
		Command:    job.Command,
		MergeType:  int(job.mergeType),
		Inputs:     job.Inputs,
		Output:     job.Output,
		Strategy:   report.Strategy,
		PolicyHash: e.policyHash,
	}
	runID, err := e.store.InsertRun(run)
	if err != nil {
		return fmt.Errorf("graft: record %s: %w", job.Output, err)
	}
	report.RunID = runID

	for _, res := range report.Files {
		fr := &store.FileResult{
			RunID:            runID,
			Path:             res.Path,
			Strategy:         res.Strategy,
			Language:         res.Language,
			Fallback:         res.Fallback,
			Conflicts:        res.Conflicts,
			MatcherTotal:     res.Counters.Total,
			MatcherOrdered:   res.Counters.Ordered,
			MatcherUnordered: res.Counters.Unordered,
			Added:            res.Stats.Added,
			Deleted:          res.Stats.Deleted,
			Merged:           res.Stats.Merged,
			DurationMS:       res.Duration.Milliseconds(),
		}
		ops := make([]store.Operation, len(res.Journal))
		for i, entry := range res.Journal {
			ops[i] = store.Operation{Seq: entry.Seq, Name: entry.Name, Detail: entry.Detail}
		}
		if _, err := e.store.InsertFileResult(fr, ops); err != nil {
			return fmt.Errorf("graft: record %s: %w", res.Path, err)
		}
	}

	status, msg := store.StatusClean, ""
	switch {
	case jobErr != nil:
		status, msg = store.StatusFailed, jobErr.Error()
	case report.HasConflicts():
		status = store.StatusConflicts
	}
	finished := report.StartedAt.Add(report.Duration)
	if err := e.store.FinishRun(runID, finished, len(report.Files), report.Conflicts, status, msg); err != nil {
		return fmt.Errorf("graft: record %s: %w", job.Output, err)
	}

	e.logger.Debug("run recorded",
		zap.Int64("run", runID),
		zap.String("status", status),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
