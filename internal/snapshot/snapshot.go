// Package snapshot persists extracted sections between the extract and
// insert passes.
//
// A snapshot lets the two passes run as separate invocations with a code
// generator run in between:
//
//	usercode extract ./proj      # writes .usercode/sections.yaml
//	<regenerate ./proj>
//	usercode insert ./proj       # reads it back and merges
//
// The file is YAML so it can be reviewed and, if needed, edited by hand.
package snapshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/usercode/internal/clock"
	"github.com/danieljhkim/usercode/internal/fsops"
	"github.com/danieljhkim/usercode/internal/section"
)

// Version is the snapshot format version written by this build.
const Version = 1

// ErrFormat indicates a snapshot file that can not be used.
var ErrFormat = errors.New("invalid snapshot")

// Snapshot is the in-memory form of a snapshot file.
type Snapshot struct {
	// Root is the absolute tree root the sections were extracted from.
	Root string

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time

	// Tree holds the sections keyed by root-relative path.
	Tree *section.Tree

	// Hashes maps root-relative paths to the SHA-256 of the file at
	// extract time.
	Hashes map[string]string
}

type fileDoc struct {
	Version   int         `yaml:"version"`
	Root      string      `yaml:"root"`
	CreatedAt time.Time   `yaml:"created_at"`
	Files     []fileEntry `yaml:"files"`
}

type fileEntry struct {
	Path     string       `yaml:"path"`
	Hash     string       `yaml:"hash,omitempty"`
	Sections []sectionDoc `yaml:"sections"`
}

type sectionDoc struct {
	Name    string `yaml:"name"`
	Line    int    `yaml:"line"`
	Content body   `yaml:"content"`
}

// body is a section body. It is always written double quoted so tabs,
// carriage returns and trailing blank lines survive; bodies that are not
// valid UTF-8 are written as !!binary.
type body string

func (b body) MarshalYAML() (interface{}, error) {
	s := string(b)
	if !utf8.ValidString(s) {
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString([]byte(s)),
		}, nil
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.DoubleQuotedStyle,
		Value: s,
	}, nil
}

func toDocs(sections []section.Section) []sectionDoc {
	out := make([]sectionDoc, len(sections))
	for i, s := range sections {
		out[i] = sectionDoc{Name: s.Name, Line: s.StartLine, Content: body(s.Content)}
	}
	return out
}

func fromDocs(docs []sectionDoc) []section.Section {
	out := make([]section.Section, len(docs))
	for i, d := range docs {
		out[i] = section.Section{Name: d.Name, Content: string(d.Content), StartLine: d.Line}
	}
	return out
}

// Manager reads and writes snapshot files.
type Manager struct {
	fs    fsops.FS
	clock clock.Clock
}

// NewManager creates a new Manager.
func NewManager(fs fsops.FS, clk clock.Clock) *Manager {
	return &Manager{fs: fs, clock: clk}
}

// Save writes snap to path atomically. A zero CreatedAt is stamped with the
// current time.
func (m *Manager) Save(path string, snap *Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = m.clock.Now()
	}

	doc := fileDoc{
		Version:   Version,
		Root:      snap.Root,
		CreatedAt: snap.CreatedAt,
		Files:     make([]fileEntry, 0, snap.Tree.Len()),
	}
	for _, f := range snap.Tree.Files() {
		doc.Files = append(doc.Files, fileEntry{
			Path:     f.Path,
			Hash:     snap.Hashes[f.Path],
			Sections: toDocs(f.Sections),
		})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var check fileDoc
	if err := yaml.Unmarshal(data, &check); err != nil {
		return fmt.Errorf("%w: encoded snapshot does not parse: %v", ErrFormat, err)
	}
	if !reflect.DeepEqual(normalize(check.Files), normalize(doc.Files)) {
		return fmt.Errorf("%w: encoded snapshot does not read back unchanged", ErrFormat)
	}

	if err := m.fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads a snapshot and checks that every path in it stays inside its
// root and that no file or section name repeats.
func (m *Manager) Load(path string) (*Snapshot, error) {
	data, err := m.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %s: unsupported version %d (want %d)", ErrFormat, path, doc.Version, Version)
	}

	snap := &Snapshot{
		Root:      doc.Root,
		CreatedAt: doc.CreatedAt,
		Hashes:    make(map[string]string, len(doc.Files)),
	}

	files := make([]section.FileSections, 0, len(doc.Files))
	seenFiles := make(map[string]bool, len(doc.Files))
	for _, f := range doc.Files {
		if err := m.fs.ValidateRelPath(f.Path); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
		}
		if seenFiles[f.Path] {
			return nil, fmt.Errorf("%w: %s: file %q listed twice", ErrFormat, path, f.Path)
		}
		seenFiles[f.Path] = true

		seenSections := make(map[string]bool, len(f.Sections))
		for _, s := range f.Sections {
			if seenSections[s.Name] {
				return nil, fmt.Errorf("%w: %s: section %q repeats in %s", ErrFormat, path, s.Name, f.Path)
			}
			seenSections[s.Name] = true
		}

		if f.Hash != "" {
			snap.Hashes[f.Path] = f.Hash
		}
		files = append(files, section.FileSections{Path: f.Path, Sections: fromDocs(f.Sections)})
	}
	snap.Tree = section.TreeFromFiles(files)

	return snap, nil
}

// normalize maps empty section lists to nil so a decoded document compares
// equal to the one it was encoded from.
func normalize(files []fileEntry) []fileEntry {
	out := make([]fileEntry, len(files))
	for i, f := range files {
		out[i] = f
		if len(f.Sections) == 0 {
			out[i].Sections = nil
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
