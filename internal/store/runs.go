package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// --- Run operations ---

func (s *Store) InsertRun(r *Run) (int64, error) {
	if r.Status == "" {
		r.Status = StatusRunning
	}
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, command, merge_type, inputs, output, strategy, policy_hash, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.Command, r.MergeType, marshalStrings(r.Inputs), r.Output, r.Strategy, r.PolicyHash, r.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(id int64, finished time.Time, files, conflicts int, status, errMsg string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, files = ?, conflicts = ?, status = ?, error = ? WHERE id = ?`,
		finished, files, conflicts, status, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run with id %d", id)
	}
	return nil
}

// Run returns the run with the given id, or nil if there is none.
func (s *Store) Run(id int64) (*Run, error) {
	row := s.db.QueryRow(runColumns+" WHERE id = ?", id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return r, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := runColumns + " ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const runColumns = `SELECT id, started_at, finished_at, command, merge_type, inputs, output, strategy,
	policy_hash, files, conflicts, status, error FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	r := &Run{}
	var inputs string
	var finished sql.NullTime
	var policyHash, errMsg sql.NullString
	if err := sc.Scan(&r.ID, &r.StartedAt, &finished, &r.Command, &r.MergeType, &inputs, &r.Output,
		&r.Strategy, &policyHash, &r.Files, &r.Conflicts, &r.Status, &errMsg); err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	r.Inputs = unmarshalStrings(inputs)
	r.PolicyHash = policyHash.String
	r.Error = errMsg.String
	return r, nil
}

// --- File result operations ---

// InsertFileResult stores a file result and its operations in one
// transaction.
func (s *Store) InsertFileResult(fr *FileResult, ops []Operation) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("insert file result: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO file_results (run_id, path, strategy, language, fallback, conflicts,
			matcher_total, matcher_ordered, matcher_unordered, added, deleted, merged, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fr.RunID, fr.Path, fr.Strategy, fr.Language, fr.Fallback, fr.Conflicts,
		fr.MatcherTotal, fr.MatcherOrdered, fr.MatcherUnordered, fr.Added, fr.Deleted, fr.Merged, fr.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file result %s: %w", fr.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if len(ops) > 0 {
		stmt, err := tx.Prepare("INSERT INTO operations (file_result_id, seq, name, detail) VALUES (?, ?, ?, ?)")
		if err != nil {
			return 0, fmt.Errorf("prepare operations: %w", err)
		}
		defer stmt.Close()
		for i := range ops {
			res, err := stmt.Exec(id, ops[i].Seq, ops[i].Name, ops[i].Detail)
			if err != nil {
				return 0, fmt.Errorf("insert operation %d: %w", ops[i].Seq, err)
			}
			opID, err := res.LastInsertId()
			if err != nil {
				return 0, fmt.Errorf("last insert id: %w", err)
			}
			ops[i].ID, ops[i].FileResultID = opID, id
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert file result: commit: %w", err)
	}
	fr.ID = id
	return id, nil
}

// FileResults returns the file results of a run in insertion order.
func (s *Store) FileResults(runID int64) ([]*FileResult, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, path, strategy, COALESCE(language, ''), COALESCE(fallback, ''), conflicts,
			matcher_total, matcher_ordered, matcher_unordered, added, deleted, merged, duration_ms
		 FROM file_results WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("file results: %w", err)
	}
	defer rows.Close()
	var results []*FileResult
	for rows.Next() {
		fr := &FileResult{}
		if err := rows.Scan(&fr.ID, &fr.RunID, &fr.Path, &fr.Strategy, &fr.Language, &fr.Fallback, &fr.Conflicts,
			&fr.MatcherTotal, &fr.MatcherOrdered, &fr.MatcherUnordered, &fr.Added, &fr.Deleted, &fr.Merged, &fr.DurationMS); err != nil {
			return nil, fmt.Errorf("scan file result: %w", err)
		}
		results = append(results, fr)
	}
	return results, rows.Err()
}

// Operations returns the operations of a file result in order.
func (s *Store) Operations(fileResultID int64) ([]*Operation, error) {
	rows, err := s.db.Query(
		"SELECT id, file_result_id, seq, name, COALESCE(detail, '') FROM operations WHERE file_result_id = ? ORDER BY seq",
		fileResultID,
	)
	if err != nil {
		return nil, fmt.Errorf("operations: %w", err)
	}
	defer rows.Close()
	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.ID, &op.FileResultID, &op.Seq, &op.Name, &op.Detail); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

// unmarshalStrings converts JSON text back to []string.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var ss []string
	_ = json.Unmarshal([]byte(s), &ss)
	return ss
}
