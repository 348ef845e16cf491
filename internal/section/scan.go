package section

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danieljhkim/usercode/internal/sentinel"
)

type state int

const (
	outside state = iota
	inSection
)

// handler receives the events of one scan. Marker lines and plain lines
// outside sections arrive in file order; a section's body arrives as one
// Section right before its end marker.
type handler interface {
	passthrough(line string)
	section(s Section)
}

type scanner struct {
	path     string
	h        handler
	state    state
	line     int
	open     string
	openLine int
	body     strings.Builder
	seen     map[string]bool
}

func scan(path string, r io.Reader, h handler) error {
	s := &scanner{path: path, h: h, seen: make(map[string]bool)}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if ferr := s.feed(line); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	if s.state == inSection {
		return s.fail(s.openLine, ProblemUnterminated, s.open)
	}
	return nil
}

func (s *scanner) fail(line int, p Problem, name string) error {
	return &StructuralError{Path: s.path, Line: line, Problem: p, Name: name, Open: s.open}
}

func (s *scanner) feed(line string) error {
	s.line++

	kind, name, err := sentinel.Classify(line)
	if err != nil {
		return s.fail(s.line, ProblemAmbiguous, "")
	}

	switch kind {
	case sentinel.Begin:
		if s.state == inSection {
			return s.fail(s.line, ProblemNestedBegin, name)
		}
		if s.seen[name] {
			return s.fail(s.line, ProblemDuplicate, name)
		}
		s.seen[name] = true
		s.h.passthrough(line)
		s.state = inSection
		s.open = name
		s.openLine = s.line
		s.body.Reset()

	case sentinel.End:
		if s.state != inSection {
			return s.fail(s.line, ProblemUnmatchedEnd, name)
		}
		if name != s.open {
			return s.fail(s.line, ProblemMismatchEnd, name)
		}
		s.h.section(Section{Name: name, Content: s.body.String(), StartLine: s.openLine})
		s.h.passthrough(line)
		s.state = outside
		s.open = ""
		s.openLine = 0
		s.body.Reset()

	default:
		if s.state == inSection {
			s.body.WriteString(line)
		} else {
			s.h.passthrough(line)
		}
	}
	return nil
}

type extractor struct {
	m *Map
}

func (e *extractor) passthrough(string) {}

func (e *extractor) section(s Section) {
	e.m.Put(s)
}

// Extract reads one file and returns its sections in order. Blank sections
// are kept; use Map.DropBlank to hide them. path is used in errors only.
func Extract(path string, r io.Reader) (*Map, error) {
	e := &extractor{m: NewMap()}
	if err := scan(path, r, e); err != nil {
		return nil, err
	}
	return e.m, nil
}

// MergeResult is the outcome of merging one file.
type MergeResult struct {
	// Content is the new file text.
	Content []byte

	// Inserted lists the sections taken from the map, in file order.
	Inserted []Section

	// NotFound lists sections of the file that had no content in the map.
	// They were emitted empty.
	NotFound []Notice

	// Orphaned lists map entries the file had no section for. They are
	// still in the map.
	Orphaned []Section
}

type merger struct {
	path string
	m    *Map
	out  bytes.Buffer
	res  *MergeResult
}

func (mg *merger) passthrough(line string) {
	mg.out.WriteString(line)
}

func (mg *merger) section(s Section) {
	stored, ok := mg.m.Take(s.Name)
	if !ok {
		mg.res.NotFound = append(mg.res.NotFound, Notice{Path: mg.path, Section: s.Name, Line: s.StartLine})
		return
	}
	mg.out.WriteString(stored.Content)
	if stored.Content != "" && !strings.HasSuffix(stored.Content, "\n") {
		mg.out.WriteByte('\n')
	}
	mg.res.Inserted = append(mg.res.Inserted, stored)
}

// Merge copies the file read from r, replacing every section body with the
// content taken out of m. Sections absent from m come out empty. Entries of m
// that were not used stay in m and are listed in Orphaned.
//
// On error no content is returned; m may have been partly consumed.
func Merge(path string, r io.Reader, m *Map) (*MergeResult, error) {
	if m == nil {
		m = NewMap()
	}
	mg := &merger{path: path, m: m, res: &MergeResult{}}
	if err := scan(path, r, mg); err != nil {
		return nil, err
	}
	mg.res.Content = mg.out.Bytes()
	mg.res.Orphaned = m.Sections()
	return mg.res, nil
}

// Render writes sections as standalone begin/content/end triples. It is used
// to preserve content that could not be merged into any file.
func Render(m *Map) []byte {
	var buf bytes.Buffer
	for _, s := range m.Sections() {
		buf.WriteString(sentinel.BeginLine(s.Name))
		buf.WriteString(s.Content)
		if s.Content != "" && !strings.HasSuffix(s.Content, "\n") {
			buf.WriteByte('\n')
		}
		buf.WriteString(sentinel.EndLine(s.Name))
	}
	return buf.Bytes()
}
