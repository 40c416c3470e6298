package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/artifact"
)

// writeTree creates the files of tree below root. Keys are slash
// separated paths.
func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0o755))
	for name, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func open(t *testing.T, rev artifact.Revision, path string) *FileArtifact {
	t.Helper()
	f, err := Open(rev, path)
	require.NoError(t, err)
	return f
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// joinMerger writes the type of the merge followed by the inputs.
func joinMerger(calls *[]string) FileMerger {
	return FileMergerFunc(func(ctx context.Context, s artifact.Scenario[*FileArtifact], target *FileArtifact) error {
		var parts []string
		for _, f := range []*FileArtifact{s.Left, s.Base, s.Right} {
			data, err := f.ReadFile()
			if err != nil {
				return err
			}
			parts = append(parts, string(data))
		}
		if calls != nil {
			*calls = append(*calls, target.Name())
		}
		return target.WriteFile([]byte(s.Type.String() + ":" + strings.Join(parts, "|")))
	})
}

// =============================================================================
// Presence
// =============================================================================

func TestDecide_AllCombinations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    Presence
		want Decision
		err  error
	}{
		{0, Decision{}, ErrGhostArtifact},
		{PresentLeft, Decision{Action: ActionAdd, From: artifact.Left}, nil},
		{PresentBase, Decision{Action: ActionDelete, From: artifact.Base}, nil},
		{PresentRight, Decision{Action: ActionAdd, From: artifact.Right}, nil},
		{PresentLeft | PresentRight, Decision{Action: ActionMergeTwoWay}, nil},
		{PresentLeft | PresentBase, Decision{Action: ActionDelete, From: artifact.Left}, nil},
		{PresentBase | PresentRight, Decision{Action: ActionDelete, From: artifact.Right}, nil},
		{PresentLeft | PresentBase | PresentRight, Decision{Action: ActionMergeThreeWay}, nil},
	}
	require.Len(t, tests, 8)
	for _, tt := range tests {
		got, err := Decide(tt.p)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.p.String())
			continue
		}
		require.NoError(t, err, tt.p.String())
		assert.Equal(t, tt.want, got, tt.p.String())
	}
}

func TestDecide_InvalidBits(t *testing.T) {
	t.Parallel()
	_, err := Decide(Presence(8))
	assert.ErrorIs(t, err, ErrInvalidCardinality)
	_, err = Decide(PresentLeft | PresentBase | PresentRight | Presence(16))
	assert.ErrorIs(t, err, ErrInvalidCardinality)
}

func TestPresence(t *testing.T) {
	t.Parallel()
	p := PresentLeft | PresentRight
	assert.True(t, p.Has(artifact.Left))
	assert.False(t, p.Has(artifact.Base))
	assert.True(t, p.Has(artifact.Right))
	assert.False(t, p.Has(artifact.Merged))
	assert.Equal(t, 2, p.Cardinality())
	assert.Equal(t, "{left,right}", p.String())
	assert.Equal(t, "{}", Presence(0).String())
	assert.Equal(t, PresentBase, PresenceOf(artifact.Base))
}

// =============================================================================
// Stack
// =============================================================================

func TestStack_LIFO(t *testing.T) {
	t.Parallel()
	var s Stack
	a := &DeleteOperation{Artifact: EmptyDummy(artifact.Left)}
	b := &DeleteOperation{Artifact: EmptyDummy(artifact.Right)}
	s.Push(a)
	s.Push(b)
	assert.Equal(t, 2, s.Len())

	got, ok := s.Pop()
	require.True(t, ok)
	assert.Same(t, b, got)
	got, ok = s.Pop()
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = s.Pop()
	assert.False(t, ok)
}

// =============================================================================
// FileArtifact
// =============================================================================

func TestFileArtifact_Children(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"b.txt": "b", "a.txt": "a", "sub/c.txt": "c"})

	root := open(t, artifact.Left, dir)
	assert.True(t, root.IsDir())
	assert.False(t, root.IsLeaf())

	children, err := root.Children()
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "a.txt", children[0].Name())
	assert.Equal(t, "b.txt", children[1].Name())
	assert.Equal(t, "sub", children[2].Name())
	assert.True(t, children[0].IsLeaf())
	assert.True(t, children[2].IsDir())
	assert.Same(t, root, children[0].Parent())
	assert.Equal(t, artifact.Left, children[0].Revision())
}

func TestFileArtifact_EmptyDummy(t *testing.T) {
	t.Parallel()
	d := EmptyDummy(artifact.Base)
	assert.True(t, d.IsEmptyDummy())
	assert.False(t, d.IsLeaf())
	children, err := d.Children()
	require.NoError(t, err)
	assert.Empty(t, children)
	data, err := d.ReadFile()
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, "base:<empty>", d.String())
}

func TestFileArtifact_CopyInto(t *testing.T) {
	t.Parallel()
	src := filepath.Join(t.TempDir(), "src")
	writeTree(t, src, map[string]string{"x.txt": "x", "deep/y.txt": "y"})
	out := NewOutput(filepath.Join(t.TempDir(), "out"), true)
	require.NoError(t, os.MkdirAll(out.Path(), 0o755))

	copied, err := open(t, artifact.Left, src).CopyInto(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out.Path(), "src"), copied.Path())
	assert.Equal(t, "y", readFile(t, filepath.Join(copied.Path(), "deep", "y.txt")))

	children, err := out.Children()
	require.NoError(t, err)
	require.Len(t, children, 1)
}

func TestFileArtifact_CopyIntoKeepsSymlinks(t *testing.T) {
	t.Parallel()
	src := filepath.Join(t.TempDir(), "src")
	writeTree(t, src, map[string]string{"x.txt": "x"})
	require.NoError(t, os.Symlink("x.txt", filepath.Join(src, "link")))
	require.NoError(t, os.Symlink("missing", filepath.Join(src, "dangling")))
	out := NewOutput(filepath.Join(t.TempDir(), "out"), true)

	copied, err := open(t, artifact.Left, src).CopyInto(out)
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(copied.Path(), "link"))
	require.NoError(t, err)
	assert.Equal(t, "x.txt", link)
	link, err = os.Readlink(filepath.Join(copied.Path(), "dangling"))
	require.NoError(t, err)
	assert.Equal(t, "missing", link)
	assert.Equal(t, "x", readFile(t, filepath.Join(copied.Path(), "x.txt")))

	// A link listed as an entry of its own is copied as a link too.
	children, err := open(t, artifact.Left, src).Children()
	require.NoError(t, err)
	var entry *FileArtifact
	for _, c := range children {
		if c.Name() == "link" {
			entry = c
		}
	}
	require.NotNil(t, entry)
	single, err := entry.CopyInto(NewOutput(filepath.Join(t.TempDir(), "single"), true))
	require.NoError(t, err)
	link, err = os.Readlink(single.Path())
	require.NoError(t, err)
	assert.Equal(t, "x.txt", link)
}

func TestFileArtifact_AddChildOnFilePanics(t *testing.T) {
	t.Parallel()
	f := NewOutput(filepath.Join(t.TempDir(), "f"), false)
	assert.Panics(t, func() { _, _ = f.AddChild("x", false) })
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()
	_, err := Open(artifact.Left, filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// =============================================================================
// Orchestrator
// =============================================================================

func TestMerge_DirectoryThreeWay(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	left, base, right := filepath.Join(tmp, "left"), filepath.Join(tmp, "base"), filepath.Join(tmp, "right")
	writeTree(t, base, map[string]string{
		"a.txt":             "a0",
		"both_deleted.txt":  "gone",
		"right_deleted.txt": "r0",
		"sub/x.txt":         "x0",
	})
	writeTree(t, left, map[string]string{
		"a.txt":             "a1",
		"right_deleted.txt": "r0",
		"only_left.txt":     "l",
		"both_new.txt":      "nl",
		"newdir/n.txt":      "n",
		"sub/x.txt":         "x1",
	})
	writeTree(t, right, map[string]string{
		"a.txt":          "a2",
		"only_right.txt": "r",
		"both_new.txt":   "nr",
		"sub/x.txt":      "x0",
	})

	out := NewOutput(filepath.Join(tmp, "out"), true)
	require.NoError(t, os.MkdirAll(out.Path(), 0o755))
	var calls []string
	o := New(joinMerger(&calls))

	err := o.Merge(context.Background(), artifact.ThreeWay,
		[]*FileArtifact{open(t, artifact.Left, left), open(t, artifact.Base, base), open(t, artifact.Right, right)}, out)
	require.NoError(t, err)

	assert.Equal(t, "three-way:a1|a0|a2", readFile(t, filepath.Join(out.Path(), "a.txt")))
	assert.Equal(t, "two-way:nl||nr", readFile(t, filepath.Join(out.Path(), "both_new.txt")))
	assert.Equal(t, "l", readFile(t, filepath.Join(out.Path(), "only_left.txt")))
	assert.Equal(t, "r", readFile(t, filepath.Join(out.Path(), "only_right.txt")))
	assert.Equal(t, "n", readFile(t, filepath.Join(out.Path(), "newdir", "n.txt")))
	assert.Equal(t, "three-way:x1|x0|x0", readFile(t, filepath.Join(out.Path(), "sub", "x.txt")))
	assert.NoFileExists(t, filepath.Join(out.Path(), "both_deleted.txt"))
	assert.NoFileExists(t, filepath.Join(out.Path(), "right_deleted.txt"))

	// Operations run in name order.
	assert.Equal(t, []string{"a.txt", "both_new.txt", "x.txt"}, calls)

	r := o.Report()
	var kinds []string
	for _, line := range r.Lines {
		kinds = append(kinds, strings.Fields(line)[0])
	}
	assert.Equal(t, []string{"MERGE", "MERGE", "DELETE", "MERGE", "ADD", "ADD", "ADD", "DELETE", "MERGE", "MERGE"}, kinds)
	assert.Equal(t, 3, r.Added)
	assert.Equal(t, 2, r.Deleted)
	assert.Equal(t, 3, r.Files)
	assert.Equal(t, 2, r.Directories)
}

func TestMerge_DirectoryTwoWay(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	left, right := filepath.Join(tmp, "left"), filepath.Join(tmp, "right")
	writeTree(t, left, map[string]string{"same.txt": "l", "l.txt": "l"})
	writeTree(t, right, map[string]string{"same.txt": "r", "r.txt": "r"})

	// The output directory does not exist yet and the first operation
	// copies a file into it.
	out := NewOutput(filepath.Join(tmp, "out"), true)
	o := New(joinMerger(nil))
	err := o.Merge(context.Background(), artifact.TwoWay,
		[]*FileArtifact{open(t, artifact.Left, left), open(t, artifact.Right, right)}, out)
	require.NoError(t, err)

	assert.Equal(t, "two-way:l||r", readFile(t, filepath.Join(out.Path(), "same.txt")))
	assert.FileExists(t, filepath.Join(out.Path(), "l.txt"))
	assert.FileExists(t, filepath.Join(out.Path(), "r.txt"))
	assert.Zero(t, o.Report().Deleted)
}

func TestMerge_SingleFile(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"l.go": "L", "r.go": "R"})

	out := NewOutput(filepath.Join(tmp, "out", "m.go"), false)
	err := New(joinMerger(nil)).Merge(context.Background(), artifact.TwoWay,
		[]*FileArtifact{open(t, artifact.Left, filepath.Join(tmp, "l.go")), open(t, artifact.Right, filepath.Join(tmp, "r.go"))}, out)
	require.NoError(t, err)
	assert.Equal(t, "two-way:L||R", readFile(t, out.Path()))
}

func TestMerge_KindMismatch(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	left, right := filepath.Join(tmp, "left"), filepath.Join(tmp, "right")
	writeTree(t, left, map[string]string{"x/y.txt": "dir"})
	writeTree(t, right, map[string]string{"x": "file"})

	out := NewOutput(filepath.Join(tmp, "out"), true)
	require.NoError(t, os.MkdirAll(out.Path(), 0o755))
	err := New(joinMerger(nil)).Merge(context.Background(), artifact.TwoWay,
		[]*FileArtifact{open(t, artifact.Left, left), open(t, artifact.Right, right)}, out)
	assert.ErrorIs(t, err, ErrKindMismatch)

	// A file merged into a directory output is rejected as well.
	err = New(joinMerger(nil)).Merge(context.Background(), artifact.TwoWay,
		[]*FileArtifact{open(t, artifact.Left, filepath.Join(right, "x")), open(t, artifact.Right, filepath.Join(right, "x"))}, out)
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestMerge_WrongInputCount(t *testing.T) {
	t.Parallel()
	out := NewOutput(t.TempDir(), true)
	err := New(joinMerger(nil)).Merge(context.Background(), artifact.ThreeWay,
		[]*FileArtifact{EmptyDummy(artifact.Left), EmptyDummy(artifact.Right)}, out)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedMergeType)

	err = New(joinMerger(nil)).Merge(context.Background(), artifact.MergeType(4), nil, out)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedMergeType)
}

func TestMerge_FirstErrorStopsTheMerge(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	left, right := filepath.Join(tmp, "left"), filepath.Join(tmp, "right")
	writeTree(t, left, map[string]string{"a.txt": "l", "z.txt": "only left"})
	writeTree(t, right, map[string]string{"a.txt": "r"})

	out := NewOutput(filepath.Join(tmp, "out"), true)
	require.NoError(t, os.MkdirAll(out.Path(), 0o755))
	boom := errors.New("boom")
	failing := FileMergerFunc(func(context.Context, artifact.Scenario[*FileArtifact], *FileArtifact) error {
		return boom
	})

	err := New(failing).Merge(context.Background(), artifact.TwoWay,
		[]*FileArtifact{open(t, artifact.Left, left), open(t, artifact.Right, right)}, out)
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, filepath.Join(out.Path(), "z.txt"))
}

func TestMerge_Cancelled(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"l.txt": "L", "r.txt": "R"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(joinMerger(nil)).Merge(ctx, artifact.TwoWay,
		[]*FileArtifact{open(t, artifact.Left, filepath.Join(tmp, "l.txt")), open(t, artifact.Right, filepath.Join(tmp, "r.txt"))},
		NewOutput(filepath.Join(tmp, "m.txt"), false))
	assert.ErrorIs(t, err, context.Canceled)
}
