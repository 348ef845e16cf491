package engine

import (
	"encoding/json"

	"github.com/danieljhkim/usercode/internal/section"
)

// ExtractResult represents the result of an extract pass.
type ExtractResult struct {
	// Root is the absolute tree root
	Root string `json:"root"`

	// Scanned is the number of source files read
	Scanned int `json:"scanned"`

	// Tree holds the sections of every file that has any
	Tree *section.Tree `json:"files"`

	// Hashes maps each file in Tree to its content hash
	Hashes map[string]string `json:"-"`

	// SnapshotPath is where the snapshot was saved (empty if not saved)
	SnapshotPath string `json:"snapshot,omitempty"`
}

// SectionRef identifies a section in a report.
type SectionRef struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// FileReport describes what the insert pass did to one file.
type FileReport struct {
	// Path is the root-relative file path
	Path string `json:"path"`

	// BackupPath is the absolute path of the backup (empty if none)
	BackupPath string `json:"backup,omitempty"`

	// Inserted lists sections spliced in, with their line at extract time
	Inserted []SectionRef `json:"inserted"`

	// NotFound lists sections of the file that had no stored content
	NotFound []SectionRef `json:"notFound,omitempty"`

	// Orphaned lists stored sections the file had no place for
	Orphaned []SectionRef `json:"orphaned,omitempty"`

	// Regenerated is true when the file changed since extract time
	Regenerated bool `json:"regenerated"`

	// Unchanged is true when the merged content equals the file on disk
	Unchanged bool `json:"unchanged"`

	// UnifiedDiff is the planned change (dry run only)
	UnifiedDiff string `json:"diff,omitempty"`

	// Additions and Deletions count changed lines (dry run only)
	Additions int `json:"additions,omitempty"`
	Deletions int `json:"deletions,omitempty"`
}

// Fallback describes a standalone file written to preserve sections that
// could not be merged.
type Fallback struct {
	// Source is the root-relative path the sections belonged to
	Source string `json:"source"`

	// Path is the absolute path of the written file
	Path string `json:"path"`

	// Sections lists the preserved section names
	Sections []string `json:"sections"`
}

// FileError records a filesystem failure confined to one file.
type FileError struct {
	Path string
	Err  error
}

func (fe FileError) Error() string {
	return fe.Path + ": " + fe.Err.Error()
}

func (fe FileError) Unwrap() error {
	return fe.Err
}

// MarshalJSON renders the error as text.
func (fe FileError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{fe.Path, fe.Err.Error()})
}

// InsertResult represents the result of an insert pass.
type InsertResult struct {
	// Root is the absolute tree root
	Root string `json:"root"`

	// DryRun is true when nothing was written
	DryRun bool `json:"dryRun"`

	// Files lists merged files in walk order
	Files []FileReport `json:"files"`

	// Fallbacks lists files written for orphaned content
	Fallbacks []Fallback `json:"fallbacks,omitempty"`

	// Errors lists per-file filesystem failures
	Errors []FileError `json:"errors,omitempty"`
}

// InsertedCount returns the number of sections spliced in across all files.
func (r *InsertResult) InsertedCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Inserted)
	}
	return n
}

// CarryResult represents the result of a carry operation.
type CarryResult struct {
	Extract *ExtractResult `json:"extract"`
	Insert  *InsertResult  `json:"insert"`
}
