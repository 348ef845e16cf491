// Package section extracts user sections from generated source files and
// splices them back in after regeneration.
//
// A single line-driven state machine serves both directions. In extract mode
// it collects the body of every user section into a Map. In merge mode it
// copies a file through unchanged except for section bodies, which are
// replaced with the content taken out of a Map.
//
// Key types:
//   - Section: one user section (name, raw body, begin line)
//   - Map: ordered sections of one file
//   - Tree: ordered Maps keyed by root-relative file path
package section

import (
	"encoding/json"
	"strings"
)

// Section is the content of one user section.
type Section struct {
	// Name is the text captured from the markers, verbatim.
	Name string `json:"name" yaml:"name"`

	// Content is the raw body with original line terminators. It never
	// includes the marker lines.
	Content string `json:"content" yaml:"content"`

	// StartLine is the 1-based line of the begin marker.
	StartLine int `json:"line" yaml:"line"`
}

// Blank reports whether the body contains only whitespace.
func (s Section) Blank() bool {
	return strings.TrimSpace(s.Content) == ""
}

// ordered is an insertion-ordered map. Removing a key and adding it again
// moves it to the end.
type ordered[V any] struct {
	keys  []string
	items map[string]V
}

func (o *ordered[V]) put(key string, v V) {
	if o.items == nil {
		o.items = make(map[string]V)
	}
	if _, ok := o.items[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.items[key] = v
}

func (o *ordered[V]) get(key string) (V, bool) {
	v, ok := o.items[key]
	return v, ok
}

func (o *ordered[V]) take(key string) (V, bool) {
	v, ok := o.items[key]
	if !ok {
		return v, false
	}
	delete(o.items, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return v, true
}

func (o *ordered[V]) ordKeys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Map holds the sections of one file in the order they were encountered.
// The zero value is ready to use.
type Map struct {
	o ordered[Section]
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{}
}

// Put stores s under s.Name. An existing entry is replaced in place.
func (m *Map) Put(s Section) {
	m.o.put(s.Name, s)
}

// Get returns the section stored under name.
func (m *Map) Get(name string) (Section, bool) {
	return m.o.get(name)
}

// Take removes the section stored under name and returns it. Once taken, a
// section can not be spliced a second time.
func (m *Map) Take(name string) (Section, bool) {
	return m.o.take(name)
}

// Len returns the number of sections.
func (m *Map) Len() int {
	return len(m.o.keys)
}

// Names returns section names in order.
func (m *Map) Names() []string {
	return m.o.ordKeys()
}

// Sections returns all sections in order.
func (m *Map) Sections() []Section {
	out := make([]Section, 0, len(m.o.keys))
	for _, k := range m.o.keys {
		out = append(out, m.o.items[k])
	}
	return out
}

// Clone returns an independent copy of m.
func (m *Map) Clone() *Map {
	c := NewMap()
	for _, s := range m.Sections() {
		c.Put(s)
	}
	return c
}

// DropBlank removes sections whose body is only whitespace and returns how
// many were removed.
func (m *Map) DropBlank() int {
	dropped := 0
	for _, s := range m.Sections() {
		if s.Blank() {
			m.Take(s.Name)
			dropped++
		}
	}
	return dropped
}

// MarshalJSON encodes the map as an ordered array of sections.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Sections())
}

// Tree maps root-relative file paths (slash separated) to their sections,
// in walk order. Files without sections are not stored.
type Tree struct {
	o ordered[*Map]
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{}
}

// Put stores m under path. Empty maps are ignored.
func (t *Tree) Put(path string, m *Map) {
	if m == nil || m.Len() == 0 {
		return
	}
	t.o.put(path, m)
}

// Get returns the sections stored for path.
func (t *Tree) Get(path string) (*Map, bool) {
	return t.o.get(path)
}

// Take removes the entry for path and returns it.
func (t *Tree) Take(path string) (*Map, bool) {
	return t.o.take(path)
}

// Len returns the number of files.
func (t *Tree) Len() int {
	return len(t.o.keys)
}

// Paths returns file paths in order.
func (t *Tree) Paths() []string {
	return t.o.ordKeys()
}

// SectionCount returns the number of sections across all files.
func (t *Tree) SectionCount() int {
	n := 0
	for _, k := range t.o.keys {
		n += t.o.items[k].Len()
	}
	return n
}

// DropBlank removes blank sections from every file, then removes files left
// without sections. It returns the number of sections removed.
func (t *Tree) DropBlank() int {
	dropped := 0
	for _, p := range t.Paths() {
		m, _ := t.o.get(p)
		dropped += m.DropBlank()
		if m.Len() == 0 {
			t.o.take(p)
		}
	}
	return dropped
}

// FileSections pairs a path with its sections for serialization.
type FileSections struct {
	Path     string    `json:"path" yaml:"path"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Files returns the tree as an ordered slice.
func (t *Tree) Files() []FileSections {
	out := make([]FileSections, 0, len(t.o.keys))
	for _, k := range t.o.keys {
		out = append(out, FileSections{Path: k, Sections: t.o.items[k].Sections()})
	}
	return out
}

// TreeFromFiles rebuilds a Tree from its serialized form.
func TreeFromFiles(files []FileSections) *Tree {
	t := NewTree()
	for _, f := range files {
		m := NewMap()
		for _, s := range f.Sections {
			m.Put(s)
		}
		t.Put(f.Path, m)
	}
	return t
}

// MarshalJSON encodes the tree as an ordered array of files.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Files())
}
