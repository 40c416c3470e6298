// Package files merges directory trees. Each entry is classified by the
// revisions it is present in; files present in more than one revision are
// handed to a FileMerger.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jward/graft/internal/artifact"
)

// ErrKindMismatch is returned when the same path is a directory in one
// revision and a file in another.
var ErrKindMismatch = errors.New("file and directory at the same path")

// FileArtifact is a file or directory of one revision. Children of a
// directory are listed from disk on first use, sorted by name.
type FileArtifact struct {
	path     string
	rev      artifact.Revision
	dir      bool
	dummy    bool
	parent   *FileArtifact
	children []*FileArtifact
	loaded   bool
}

// Open returns the artifact for an existing file or directory.
func Open(rev artifact.Revision, path string) (*FileArtifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("files: open %s: %w", path, err)
	}
	return &FileArtifact{path: path, rev: rev, dir: info.IsDir()}, nil
}

// NewOutput returns the artifact a merge result is written to. The path
// need not exist yet; a directory is created by the merge.
func NewOutput(path string, dir bool) *FileArtifact {
	return &FileArtifact{path: path, rev: artifact.Merged, dir: dir, loaded: true}
}

// EmptyDummy returns the placeholder used as base of a two-way merge. It
// behaves as an empty directory or an empty file, whichever is asked.
func EmptyDummy(rev artifact.Revision) *FileArtifact {
	return &FileArtifact{rev: rev, dummy: true, loaded: true}
}

func (f *FileArtifact) Path() string                { return f.path }
func (f *FileArtifact) Name() string                { return filepath.Base(f.path) }
func (f *FileArtifact) Revision() artifact.Revision { return f.rev }
func (f *FileArtifact) Parent() *FileArtifact       { return f.parent }
func (f *FileArtifact) IsDir() bool                 { return f.dir }
func (f *FileArtifact) IsEmptyDummy() bool          { return f.dummy }

// IsLeaf reports whether f is a regular file.
func (f *FileArtifact) IsLeaf() bool {
	return !f.dir && !f.dummy
}

// Children lists the entries of a directory.
func (f *FileArtifact) Children() ([]*FileArtifact, error) {
	if f.loaded || !f.dir {
		return f.children, nil
	}
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, fmt.Errorf("files: list %s: %w", f.path, err)
	}
	for _, e := range entries {
		f.children = append(f.children, &FileArtifact{
			path:   filepath.Join(f.path, e.Name()),
			rev:    f.rev,
			dir:    e.IsDir(),
			parent: f,
		})
	}
	f.loaded = true
	return f.children, nil
}

// AddChild adds an output entry below the directory f. Directories are
// created on disk right away; files are written by whoever fills them.
func (f *FileArtifact) AddChild(name string, dir bool) (*FileArtifact, error) {
	if !f.dir {
		panic(fmt.Sprintf("files: AddChild on non-directory %s", f))
	}
	child := &FileArtifact{
		path:   filepath.Join(f.path, name),
		rev:    f.rev,
		dir:    dir,
		parent: f,
		loaded: true,
	}
	if dir {
		if err := os.MkdirAll(child.path, 0o755); err != nil {
			return nil, fmt.Errorf("files: create %s: %w", child.path, err)
		}
	}
	f.children = append(f.children, child)
	return child, nil
}

// ReadFile returns the content of a file. An empty dummy reads as empty.
func (f *FileArtifact) ReadFile() ([]byte, error) {
	if f.dummy {
		return nil, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("files: read %s: %w", f.path, err)
	}
	return data, nil
}

// WriteFile replaces the content of an output file, creating its parent
// directory if needed.
func (f *FileArtifact) WriteFile(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("files: create %s: %w", filepath.Dir(f.path), err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("files: write %s: %w", f.path, err)
	}
	return nil
}

// CopyInto copies f, recursively for directories, into the directory dst
// and returns the copy. Symbolic links are copied as links.
func (f *FileArtifact) CopyInto(dst *FileArtifact) (*FileArtifact, error) {
	if err := os.MkdirAll(dst.path, 0o755); err != nil {
		return nil, fmt.Errorf("files: create %s: %w", dst.path, err)
	}
	out, err := dst.AddChild(f.Name(), f.dir)
	if err != nil {
		return nil, err
	}
	if f.dir {
		if err := copyTree(f.path, out.path); err != nil {
			return nil, fmt.Errorf("files: copy %s: %w", f.path, err)
		}
		out.loaded = false
		return out, nil
	}
	if err := copyEntry(f.path, out.path); err != nil {
		return nil, fmt.Errorf("files: copy %s: %w", f.path, err)
	}
	return out, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyEntry(path, target)
	})
}

// copyEntry copies a regular file, or recreates a symbolic link with the
// same destination.
func copyEntry(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return copyFile(src, dst)
	}
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	return os.Symlink(link, dst)
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	info, err := sourceFile.Stat()
	if err != nil {
		return err
	}
	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

func (f *FileArtifact) String() string {
	if f.dummy {
		return string(f.rev) + ":<empty>"
	}
	return string(f.rev) + ":" + f.path
}
