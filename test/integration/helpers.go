//go:build integration
// +build integration

package integration

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/danieljhkim/usercode/internal/clock"
	"github.com/danieljhkim/usercode/internal/engine"
	"github.com/danieljhkim/usercode/internal/fsops"
	"github.com/danieljhkim/usercode/internal/hash"
	"github.com/danieljhkim/usercode/internal/snapshot"
)

// testFS is a filesystem implementation that keeps files in memory for testing
type testFS struct {
	files map[string][]byte
	modes map[string]os.FileMode
	dirs  map[string]bool

	// failRename makes Rename fail when the source path is listed
	failRename map[string]bool
}

var _ fsops.FS = (*testFS)(nil)

func newTestFS() *testFS {
	return &testFS{
		files:      make(map[string][]byte),
		modes:      make(map[string]os.FileMode),
		dirs:       map[string]bool{"/": true},
		failRename: make(map[string]bool),
	}
}

// put stores a file and creates its parent directories.
func (f *testFS) put(path, content string) {
	_ = f.mkdirAll(filepath.Dir(path), 0755)
	f.files[path] = []byte(content)
	f.modes[path] = 0644
}

func (f *testFS) Exists(path string) (bool, error) {
	_, isFile := f.files[path]
	return isFile || f.dirs[path], nil
}

func (f *testFS) Lstat(path string) (os.FileInfo, error) {
	if data, ok := f.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), size: int64(len(data)), mode: f.modes[path]}, nil
	}
	if f.dirs[path] {
		return &mockFileInfo{name: filepath.Base(path), mode: os.ModeDir | 0755, isDir: true}, nil
	}
	return nil, &os.PathError{Op: "lstat", Path: path, Err: os.ErrNotExist}
}

func (f *testFS) mkdirAll(path string, perm os.FileMode) error {
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		f.dirs[p] = true
		if p == filepath.Dir(p) {
			return nil
		}
	}
}

func (f *testFS) Rename(oldpath, newpath string) error {
	if f.failRename[oldpath] {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errors.New("read-only file system")}
	}
	data, ok := f.files[oldpath]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrNotExist}
	}
	f.files[newpath] = data
	f.modes[newpath] = f.modes[oldpath]
	delete(f.files, oldpath)
	delete(f.modes, oldpath)
	return nil
}

func (f *testFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	_ = f.mkdirAll(filepath.Dir(path), 0755)
	f.files[path] = append([]byte(nil), data...)
	f.modes[path] = perm
	return nil
}

func (f *testFS) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return data, nil
}

// WalkDir visits root and everything below it in lexical order.
func (f *testFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	err := f.walk(filepath.Clean(root), fn)
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (f *testFS) walk(path string, fn fs.WalkDirFunc) error {
	info, err := f.Lstat(path)
	if err != nil {
		return fn(path, nil, err)
	}
	if err := fn(path, fs.FileInfoToDirEntry(info), nil); err != nil {
		if errors.Is(err, fs.SkipDir) && info.IsDir() {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}
	for _, child := range f.children(path) {
		if err := f.walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *testFS) children(dir string) []string {
	var out []string
	prefix := strings.TrimSuffix(dir, "/") + "/"
	add := func(p string) {
		if p != dir && filepath.Dir(p) == dir && strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	for p := range f.files {
		add(p)
	}
	for p := range f.dirs {
		add(p)
	}
	sort.Strings(out)
	return out
}

func (f *testFS) ValidateRelPath(relPath string) error {
	return fsops.NewRealFS().ValidateRelPath(relPath)
}

// mockFileInfo implements os.FileInfo for testing
type mockFileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

func setupTestEngine(t *testing.T) (*engine.Engine, *testFS, *clock.FakeClock) {
	t.Helper()

	fs := newTestFS()
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	eng := engine.New(fs, hash.NewSHA256Hasher(), snapshot.NewManager(fs, clk), nil)

	return eng, fs, clk
}
