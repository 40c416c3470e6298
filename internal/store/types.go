package store

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusClean     = "clean"
	StatusConflicts = "conflicts"
	StatusFailed    = "failed"
)

type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Command    string
	MergeType  int
	Inputs     []string
	Output     string
	Strategy   string
	PolicyHash string
	Files      int
	Conflicts  int
	Status     string
	Error      string
}

type FileResult struct {
	ID               int64
	RunID            int64
	Path             string
	Strategy         string
	Language         string
	Fallback         string
	Conflicts        int
	MatcherTotal     int
	MatcherOrdered   int
	MatcherUnordered int
	Added            int
	Deleted          int
	Merged           int
	DurationMS       int64
}

type Operation struct {
	ID           int64
	FileResultID int64
	Seq          int
	Name         string
	Detail       string
}
