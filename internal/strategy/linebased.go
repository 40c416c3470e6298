package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/parser"
)

// LineBased merges files line by line with git merge-file.
type LineBased struct {
	Markers parser.Markers
	// Diff3 adds the base lines to conflict blocks.
	Diff3 bool
}

func (s *LineBased) Name() string { return NameLineBased }

// Merge writes the three versions to a temporary directory and runs git
// merge-file on them. A two-way merge uses an empty base.
func (s *LineBased) Merge(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	dir, err := os.MkdirTemp("", "graft-merge-*")
	if err != nil {
		return nil, fmt.Errorf("strategy: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	base := in.Base
	if in.Type != artifact.ThreeWay {
		base = nil
	}
	paths := make([]string, 0, 3)
	for _, f := range []struct {
		name string
		data []byte
	}{{"left", in.Left}, {"base", base}, {"right", in.Right}} {
		p := filepath.Join(dir, f.name)
		if err := os.WriteFile(p, f.data, 0o600); err != nil {
			return nil, fmt.Errorf("strategy: write %s: %w", f.name, err)
		}
		paths = append(paths, p)
	}

	out, conflicts, err := mergeFile(ctx, s.labels(), s.Diff3, paths[0], paths[1], paths[2])
	if err != nil {
		return nil, fmt.Errorf("strategy: %s: %w", in.Path, err)
	}
	return &Result{
		Path:      in.Path,
		Strategy:  NameLineBased,
		Conflicts: conflicts,
		Duration:  time.Since(start),
		Output:    out,
	}, nil
}

func (s *LineBased) labels() [3]string {
	m := s.Markers
	if m.Left == "" {
		m.Left = parser.DefaultMarkers.Left
	}
	if m.Right == "" {
		m.Right = parser.DefaultMarkers.Right
	}
	return [3]string{m.Left, "base", m.Right}
}

// mergeFile runs git's three-way file merge and returns the merged text
// and the number of conflicts. git reports the conflict count as exit code,
// truncated to 127; larger codes are failures.
func mergeFile(ctx context.Context, labels [3]string, diff3 bool, left, base, right string) ([]byte, int, error) {
	args := []string{"merge-file", "-p"}
	if diff3 {
		args = append(args, "--diff3")
	}
	for _, l := range labels {
		args = append(args, "-L", l)
	}
	args = append(args, left, base, right)
	cmd := exec.CommandContext(ctx, "git", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), 0, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if code := ee.ExitCode(); code > 0 && code <= 127 {
			return stdout.Bytes(), code, nil
		}
	}

	msg := stderr.String()
	if msg == "" {
		msg = err.Error()
	}
	return nil, 0, fmt.Errorf("git merge-file failed: %s", msg)
}
