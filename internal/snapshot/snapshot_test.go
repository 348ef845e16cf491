package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/usercode/internal/clock"
	"github.com/danieljhkim/usercode/internal/fsops"
	"github.com/danieljhkim/usercode/internal/section"
)

var fixedTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestManager() *Manager {
	return NewManager(fsops.NewRealFS(), clock.NewFakeClock(fixedTime))
}

func sampleTree() *section.Tree {
	tree := section.NewTree()

	main := section.NewMap()
	main.Put(section.Section{Name: "Includes", Content: "#include <stdio.h>\n", StartLine: 3})
	main.Put(section.Section{Name: "WHILE", Content: "    tick();   \n\t\tdone();\n", StartLine: 40})
	main.Put(section.Section{Name: "blank", Content: "\n", StartLine: 50})
	tree.Put("Src/main.c", main)

	hdr := section.NewMap()
	hdr.Put(section.Section{Name: "EFP", Content: "void app(void);\r\n", StartLine: 7})
	hdr.Put(section.Section{Name: "tail", Content: "  lead();", StartLine: 9})
	tree.Put("Inc/main.h", hdr)

	return tree
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	mgr := newTestManager()
	path := filepath.Join(t.TempDir(), ".usercode", "sections.yaml")

	snap := &Snapshot{
		Root:   "/work/proj",
		Tree:   sampleTree(),
		Hashes: map[string]string{"Src/main.c": "abc123"},
	}
	require.NoError(t, mgr.Save(path, snap))
	assert.Equal(t, fixedTime, snap.CreatedAt, "zero CreatedAt should be stamped")

	loaded, err := mgr.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/work/proj", loaded.Root)
	assert.True(t, fixedTime.Equal(loaded.CreatedAt))
	assert.Equal(t, sampleTree().Files(), loaded.Tree.Files(), "sections must round trip byte for byte")
	assert.Equal(t, map[string]string{"Src/main.c": "abc123"}, loaded.Hashes)
}

func TestManager_SaveLoadPreservesBodies(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "one blank line", content: "\n"},
		{name: "two blank lines", content: "\n\n"},
		{name: "spaces only", content: "   \n"},
		{name: "tab only", content: "\t\n"},
		{name: "tab indented", content: "\tfoo();\n"},
		{name: "mixed tabs", content: "\t\tx;\n\ty;\n"},
		{name: "tab then blank", content: "\tx;\n\n"},
		{name: "crlf", content: "\tinit();\r\n\r\n"},
		{name: "lone cr", content: "a\rb\n"},
		{name: "no final newline", content: "  last();"},
		{name: "quotes and backslashes", content: "printf(\"%s\\n\", s);\n"},
		{name: "yaml lookalike", content: "key: value\n- item\n# note\n"},
		{name: "invalid utf-8", content: "\xff\xfe\tname\n"},
		{name: "latin1 comment", content: "// caf\xe9\n"},
		{name: "long line", content: strings.Repeat("x = x + 1; ", 40) + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager()
			path := filepath.Join(t.TempDir(), "s.yaml")

			m := section.NewMap()
			m.Put(section.Section{Name: "0", Content: tt.content, StartLine: 2})
			tree := section.NewTree()
			tree.Put("main.c", m)

			require.NoError(t, mgr.Save(path, &Snapshot{Tree: tree}))

			loaded, err := mgr.Load(path)
			require.NoError(t, err)

			got, ok := loaded.Tree.Get("main.c")
			require.True(t, ok)
			s, ok := got.Get("0")
			require.True(t, ok)
			assert.Equal(t, tt.content, s.Content)
			assert.Equal(t, 2, s.StartLine)
		})
	}
}

func TestManager_SaveKeepsExplicitTime(t *testing.T) {
	mgr := newTestManager()
	path := filepath.Join(t.TempDir(), "s.yaml")
	explicit := fixedTime.Add(-time.Hour)

	require.NoError(t, mgr.Save(path, &Snapshot{CreatedAt: explicit, Tree: section.NewTree()}))

	loaded, err := mgr.Load(path)
	require.NoError(t, err)
	assert.True(t, explicit.Equal(loaded.CreatedAt))
	assert.Equal(t, 0, loaded.Tree.Len())
}

func TestManager_LoadRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "wrong version",
			doc:  "version: 2\nfiles: []\n",
		},
		{
			name: "missing version",
			doc:  "files: []\n",
		},
		{
			name: "path escapes root",
			doc:  "version: 1\nfiles:\n  - path: ../outside.c\n    sections: []\n",
		},
		{
			name: "absolute path",
			doc:  "version: 1\nfiles:\n  - path: /etc/passwd\n    sections: []\n",
		},
		{
			name: "file listed twice",
			doc: "version: 1\nfiles:\n" +
				"  - path: a.c\n    sections: [{name: x, content: \"\", line: 1}]\n" +
				"  - path: a.c\n    sections: [{name: y, content: \"\", line: 1}]\n",
		},
		{
			name: "section repeats",
			doc: "version: 1\nfiles:\n" +
				"  - path: a.c\n    sections:\n" +
				"      - {name: x, content: \"1\\n\", line: 1}\n" +
				"      - {name: x, content: \"2\\n\", line: 5}\n",
		},
		{
			name: "not yaml",
			doc:  "version: [1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))

			_, err := newTestManager().Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "error %v should wrap ErrFormat", err)
		})
	}
}

func TestManager_LoadMissingFile(t *testing.T) {
	_, err := newTestManager().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManager_LoadHandWritten(t *testing.T) {
	doc := `version: 1
root: /proj
created_at: 2024-03-01T09:00:00Z
files:
  - path: Src/main.c
    sections:
      - name: Init
        line: 2
        content: |
          foo();
`
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	snap, err := newTestManager().Load(path)
	require.NoError(t, err)

	m, ok := snap.Tree.Get("Src/main.c")
	require.True(t, ok)
	s, ok := m.Get("Init")
	require.True(t, ok)
	assert.Equal(t, section.Section{Name: "Init", Content: "foo();\n", StartLine: 2}, s)
	assert.Empty(t, snap.Hashes)
}
