// Package gitutil reads merge conflicts out of a git repository's index.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// Index stages of an unmerged path.
const (
	StageBase   = 1
	StageOurs   = 2
	StageTheirs = 3
)

// RepoRoot returns the repository root directory for the given working directory.
func RepoRoot(ctx context.Context, cwd string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = cwd
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel failed: %w", err)
	}
	root := strings.TrimSpace(string(output))
	if root == "" {
		return "", fmt.Errorf("git rev-parse returned empty repo root")
	}
	return root, nil
}

// ListUnmergedFiles returns repo-relative paths of conflicted files under scopePathspec.
func ListUnmergedFiles(ctx context.Context, repoRoot string, scopePathspec string) ([]string, error) {
	pathspec := scopePathspec
	if pathspec == "" {
		pathspec = "."
	}

	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", "--diff-filter=U", "--", pathspec)
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff --name-only --diff-filter=U failed: %w", err)
	}
	return splitLines(output), nil
}

// Stages returns the index stages recorded for an unmerged path, sorted.
// A path added on both sides has no base stage; a path deleted on one
// side lacks that side's stage.
func Stages(ctx context.Context, repoRoot string, path string) ([]int, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-u", "--", path)
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files -u %s failed: %w", path, err)
	}

	var stages []int
	for _, line := range splitLines(output) {
		// <mode> SP <object> SP <stage> TAB <file>
		meta, _, ok := strings.Cut(line, "\t")
		fields := strings.Fields(meta)
		if !ok || len(fields) != 3 {
			return nil, fmt.Errorf("git ls-files -u: unexpected line %q", line)
		}
		stage, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("git ls-files -u: bad stage in %q", line)
		}
		stages = append(stages, stage)
	}
	sort.Ints(stages)
	return stages, nil
}

// ShowStage reads a conflicted file content from the git index stage (1=base, 2=ours, 3=theirs).
func ShowStage(ctx context.Context, repoRoot string, stage int, path string) ([]byte, error) {
	ref := fmt.Sprintf(":%d:%s", stage, path)
	cmd := exec.CommandContext(ctx, "git", "show", ref)
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git show %s failed: %w", ref, err)
	}
	return output, nil
}

// Add stages the given paths, marking them resolved.
func Add(ctx context.Context, repoRoot string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git add failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

func splitLines(output []byte) []string {
	lines := bytes.Split(bytes.TrimSpace(output), []byte{'\n'})
	if len(lines) == 1 && len(lines[0]) == 0 {
		return nil
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		p := strings.TrimSpace(string(line))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
