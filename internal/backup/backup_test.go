package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/usercode/internal/fsops"
)

// setChecker marks a fixed set of paths as taken.
type setChecker map[string]bool

func (s setChecker) Exists(path string) (bool, error) {
	return s[path], nil
}

type failingChecker struct{}

func (failingChecker) Exists(string) (bool, error) {
	return false, errors.New("permission denied")
}

func TestPath(t *testing.T) {
	dir := filepath.Join("proj", "Src")
	in := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		name  string
		file  string
		taken []string
		want  string
	}{
		{
			name: "first backup",
			file: "main.c",
			want: ".main.c.1",
		},
		{
			name:  "skips existing backups",
			file:  "main.c",
			taken: []string{".main.c.1", ".main.c.2"},
			want:  ".main.c.3",
		},
		{
			name:  "gap is not reused",
			file:  "main.c",
			taken: []string{".main.c.1"},
			want:  ".main.c.2",
		},
		{
			name: "no extension",
			file: "Makefile",
			want: ".Makefile.1",
		},
		{
			name: "numeric extension is incremented",
			file: "log.7",
			want: ".log.8",
		},
		{
			name: "already hidden file keeps single dot",
			file: ".config.h",
			want: ".config.h.1",
		},
		{
			name: "leading dots are not an extension",
			file: ".profile",
			want: ".profile.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := setChecker{}
			for _, p := range tt.taken {
				taken[in(p)] = true
			}

			got, err := Path(taken, in(tt.file))
			if err != nil {
				t.Fatalf("Path() error = %v", err)
			}
			if got != in(tt.want) {
				t.Errorf("Path(%q) = %q, want %q", tt.file, got, in(tt.want))
			}
		})
	}
}

func TestPath_RealFilesystem(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"main.c", ".main.c.1", ".main.c.2"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	got, err := Path(fsops.NewRealFS(), filepath.Join(tmpDir, "main.c"))
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if want := filepath.Join(tmpDir, ".main.c.3"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	// Path must not create anything.
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Path() changed the directory: %d entries", len(entries))
	}
}

func TestPath_CheckerError(t *testing.T) {
	if _, err := Path(failingChecker{}, "main.c"); err == nil {
		t.Fatal("expected error from failing checker")
	}
}

func TestFree(t *testing.T) {
	tests := []struct {
		name  string
		taken []string
		want  string
	}{
		{name: "unused path is returned as is", want: "main.c.orphaned"},
		{name: "first suffix", taken: []string{"main.c.orphaned"}, want: "main.c.orphaned.1"},
		{
			name:  "skips taken suffixes",
			taken: []string{"main.c.orphaned", "main.c.orphaned.1", "main.c.orphaned.2"},
			want:  "main.c.orphaned.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := setChecker{}
			for _, p := range tt.taken {
				taken[p] = true
			}
			got, err := Free(taken, "main.c.orphaned")
			if err != nil {
				t.Fatalf("Free() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Free() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		in, stem, ext string
	}{
		{"main.c", "main", ".c"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"Makefile", "Makefile", ""},
		{".bashrc", ".bashrc", ""},
		{".main.c.1", ".main.c", ".1"},
		{"..x", "..x", ""},
	}
	for _, tt := range tests {
		stem, ext := splitExt(tt.in)
		if stem != tt.stem || ext != tt.ext {
			t.Errorf("splitExt(%q) = (%q, %q), want (%q, %q)", tt.in, stem, ext, tt.stem, tt.ext)
		}
	}
}
