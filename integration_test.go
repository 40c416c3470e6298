package graft

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const javaBase = `package demo;

public class Shapes {
    public int area(int w, int h) {
        return w * h;
    }
}
`

// writeTree creates files below root from a map of relative path to content.
func writeTree(t *testing.T, root string, tree map[string]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0o755))
	for name, content := range tree {
		writeFile(t, root, name, content)
	}
	return root
}

// listTree returns the relative paths of all regular files below root.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		out = append(out, filepath.ToSlash(rel))
		return err
	}))
	return out
}

func TestIntegration_DirectoryThreeWay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	javaLeft := strings.Replace(javaBase, "    public int area", "    public int perimeter(int w, int h) {\n        return 2 * (w + h);\n    }\n\n    public int area", 1)
	javaRight := strings.Replace(javaBase, "public class Shapes {\n", "public class Shapes {\n    private int count;\n\n", 1)
	goLeft := "package p\n\nfunc B() int {\n\treturn 2\n}\n\nfunc A() int {\n\treturn 1\n}\n"
	goRight := strings.Replace(goBase, "return 1", "return 10", 1)

	left := writeTree(t, filepath.Join(dir, "left"), map[string]string{
		"src/Shapes.java": javaLeft,
		"p/p.go":          goLeft,
		"p/left_only.go":  "package p\n",
		"gone/right.go":   "package gone\n",
	})
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{
		"src/Shapes.java": javaBase,
		"p/p.go":          goBase,
		"gone/right.go":   "package gone\n",
		"p/dropped.go":    "package p\n",
	})
	right := writeTree(t, filepath.Join(dir, "right"), map[string]string{
		"src/Shapes.java": javaRight,
		"p/p.go":          goRight,
		"p/dropped.go":    "package p\n",
		"new/r.go":        "package r\n",
	})
	out := filepath.Join(dir, "out")

	report, err := newTestEngine(t).Merge(context.Background(), []string{left, base, right}, out)
	require.NoError(t, err)
	assert.False(t, report.HasConflicts())

	// gone/ was deleted by right, p/dropped.go by left. left_only.go and
	// new/ were added on one side.
	assert.ElementsMatch(t, []string{"new/r.go", "p/left_only.go", "p/p.go", "src/Shapes.java"}, listTree(t, out))
	assert.Equal(t, movedAndEdited, readFile(t, filepath.Join(out, "p/p.go")))

	java := readFile(t, filepath.Join(out, "src/Shapes.java"))
	assert.Contains(t, java, "private int count;")
	assert.Contains(t, java, "return 2 * (w + h);")
	assert.Contains(t, java, "return w * h;")

	require.Len(t, report.Files, 2)
	langs := []string{report.Files[0].Language, report.Files[1].Language}
	assert.ElementsMatch(t, []string{"go", "java"}, langs)
	assert.Equal(t, 2, report.Operations.Added)
	assert.Equal(t, 2, report.Operations.Deleted)
}

func TestIntegration_DirectoryTwoWay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	left := writeTree(t, filepath.Join(dir, "left"), map[string]string{
		"p.go": goBase,
		"a.go": "package p\n",
	})
	right := writeTree(t, filepath.Join(dir, "right"), map[string]string{
		"p.go": goBase + "\nfunc D() int {\n\treturn 4\n}\n",
		"b.go": "package p\n",
	})
	out := filepath.Join(dir, "out")

	report, err := newTestEngine(t).Merge(context.Background(), []string{left, right}, out)
	require.NoError(t, err)
	assert.Equal(t, TwoWay, report.Type)
	assert.False(t, report.HasConflicts())
	assert.ElementsMatch(t, []string{"a.go", "b.go", "p.go"}, listTree(t, out))
	assert.Contains(t, readFile(t, filepath.Join(out, "p.go")), "func D() int")
}

func TestIntegration_UnsupportedFilesFallBack(t *testing.T) {
	t.Parallel()
	requireGit(t)
	inputs := threeFiles(t, "notes.txt", "z\na\nb\nc\n", "a\nb\nc\n", "a\nb\nc\n")
	out := filepath.Join(t.TempDir(), "notes.txt")

	report, err := newTestEngine(t).Merge(context.Background(), inputs, out)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, StrategyLineBased, report.Files[0].Strategy)
	assert.NotEmpty(t, report.Files[0].Fallback)
	assert.Equal(t, "z\na\nb\nc\n", readFile(t, out))
}

// =============================================================================
// Batches
// =============================================================================

func batchJobs(t *testing.T, n int) []Job {
	t.Helper()
	right := strings.Replace(goBase, "return 1", "return 10", 1)
	left := "package p\n\nfunc B() int {\n\treturn 2\n}\n\nfunc A() int {\n\treturn 1\n}\n"
	dir := t.TempDir()
	jobs := make([]Job, n)
	for i := range jobs {
		name := filepath.Join(dir, "out", string(rune('a'+i))+".go")
		jobs[i] = Job{Contents: [][]byte{[]byte(left), []byte(goBase), []byte(right)}, Output: name}
	}
	return jobs
}

func TestMergeBatch_Parallel(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	e := newTestEngine(t, WithStore(s), WithWorkers(3))
	jobs := batchJobs(t, 6)

	reports, err := e.MergeBatch(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, reports, 6)
	for i, r := range reports {
		require.NotNil(t, r)
		assert.Equal(t, jobs[i].Output, r.Output)
		assert.Equal(t, movedAndEdited, readFile(t, jobs[i].Output))
		assert.Positive(t, r.RunID)
	}

	runs, err := s.Runs(0)
	require.NoError(t, err)
	assert.Len(t, runs, 6)
}

func TestMergeBatch_SerialMatchesParallel(t *testing.T) {
	t.Parallel()
	serial := newTestEngine(t, WithParallel(false))
	parallel := newTestEngine(t)

	a, err := serial.MergeBatch(context.Background(), batchJobs(t, 4))
	require.NoError(t, err)
	b, err := parallel.MergeBatch(context.Background(), batchJobs(t, 4))
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, string(a[i].Files[0].Output), string(b[i].Files[0].Output))
	}
}

func TestMergeBatch_CollectsErrors(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	e := newTestEngine(t, WithStore(s))
	jobs := batchJobs(t, 3)
	missing := filepath.Join(t.TempDir(), "missing")
	jobs = append(jobs,
		Job{Inputs: []string{missing + "1.go", missing + "2.go"}, Output: filepath.Join(t.TempDir(), "x.go")},
		Job{Inputs: []string{missing + "3.go", missing + "4.go"}, Output: filepath.Join(t.TempDir(), "y.go")},
	)

	reports, err := e.MergeBatch(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "x.go")
	assert.Contains(t, err.Error(), "y.go")
	require.Len(t, reports, 5)
	assert.NotNil(t, reports[0])
	assert.Nil(t, reports[3])
	assert.Nil(t, reports[4])

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
	var failed int
	for _, r := range runs {
		if r.Status == "failed" {
			failed++
			assert.NotEmpty(t, r.Error)
		}
	}
	assert.Equal(t, 2, failed)
}

func TestMergeBatch_InvalidJob(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	_, err := e.MergeBatch(context.Background(), []Job{{Inputs: []string{"a.go"}, Output: "out.go"}})
	assert.ErrorContains(t, err, "unsupported merge type")

	_, err = e.MergeBatch(context.Background(), []Job{{Inputs: []string{"a.go", "b.go"}}})
	assert.ErrorContains(t, err, "no output")

	_, err = e.MergeBatch(context.Background(), []Job{{
		Inputs:   []string{"a.go", "b.go"},
		Contents: [][]byte{nil, nil},
		Output:   "out.go",
	}})
	assert.ErrorContains(t, err, "both input paths and contents")
}

func TestMergeBatch_Empty(t *testing.T) {
	t.Parallel()
	reports, err := newTestEngine(t).MergeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

// =============================================================================
// Corpus
// =============================================================================

func TestIntegration_CorpusSelfMerge(t *testing.T) {
	t.Parallel()
	paths, err := filepath.Glob(filepath.Join("testdata", "corpus", "*.go"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	e := newTestEngine(t, WithStrategy(StrategyStructured))

	for _, path := range paths {
		src, err := os.ReadFile(path)
		require.NoError(t, err)

		res, err := e.MergeBytes(context.Background(), path, src, src, src)
		require.NoError(t, err, path)
		assert.Empty(t, res.Fallback, path)
		assert.Zero(t, res.Conflicts, path)
		assert.Equal(t, string(src), string(res.Output), path)
		assert.True(t, res.Counters.Valid(), path)
	}
}
