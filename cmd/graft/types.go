package main

import "time"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIFile is the merge result of one file.
type CLIFile struct {
	Path       string `json:"path"`
	Strategy   string `json:"strategy"`
	Language   string `json:"language,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
	Conflicts  int    `json:"conflicts"`
	Matched    int    `json:"matcher_calls"`
	Ordered    int    `json:"matcher_ordered"`
	Unordered  int    `json:"matcher_unordered"`
	DurationMS int64  `json:"duration_ms"`
}

// CLIReport is the outcome of the merge command.
type CLIReport struct {
	RunID      int64     `json:"run_id,omitempty"`
	Type       string    `json:"type"`
	Strategy   string    `json:"strategy"`
	Output     string    `json:"output"`
	Conflicts  int       `json:"conflicts"`
	Added      int       `json:"added"`
	Deleted    int       `json:"deleted"`
	Files      []CLIFile `json:"files"`
	Operations []string  `json:"operations,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// CLIResolved is the outcome of resolving one unmerged path.
type CLIResolved struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Conflicts int    `json:"conflicts"`
	Strategy  string `json:"strategy,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Resolution statuses.
const (
	resolvedClean     = "clean"
	resolvedConflicts = "conflicts"
	resolvedSkipped   = "skipped"
)

// CLIRun is a recorded run.
type CLIRun struct {
	ID         int64      `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Command    string     `json:"command"`
	Type       int        `json:"type"`
	Inputs     []string   `json:"inputs,omitempty"`
	Output     string     `json:"output"`
	Strategy   string     `json:"strategy"`
	Files      int        `json:"files"`
	Conflicts  int        `json:"conflicts"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// CLIFileRecord is a recorded file result with its operations.
type CLIFileRecord struct {
	ID         int64    `json:"id"`
	Path       string   `json:"path"`
	Strategy   string   `json:"strategy"`
	Language   string   `json:"language,omitempty"`
	Fallback   string   `json:"fallback,omitempty"`
	Conflicts  int      `json:"conflicts"`
	Added      int      `json:"added"`
	Deleted    int      `json:"deleted"`
	Merged     int      `json:"merged"`
	Matched    int      `json:"matcher_calls"`
	DurationMS int64    `json:"duration_ms"`
	Operations []string `json:"operations,omitempty"`
}

// CLIRunDetail is a run with its file results.
type CLIRunDetail struct {
	Run   CLIRun          `json:"run"`
	Files []CLIFileRecord `json:"files"`
}
