package engine

import (
	"github.com/danieljhkim/usercode/internal/config"
	"github.com/danieljhkim/usercode/internal/section"
)

// ExtractRequest represents a request to harvest sections from a tree.
type ExtractRequest struct {
	// Root is the tree to scan
	Root string

	// Config selects extensions and excluded directories (default: built-in)
	Config *config.Config

	// SnapshotPath, when set, saves the result as a snapshot file
	SnapshotPath string
}

// InsertRequest represents a request to merge sections back into a tree.
type InsertRequest struct {
	// Root is the tree to rewrite
	Root string

	// Config selects extensions and excluded directories (default: built-in)
	Config *config.Config

	// Tree holds the sections to insert. It is consumed: on return it holds
	// only content that could not be written anywhere. When nil, the tree is
	// loaded from SnapshotPath.
	Tree *section.Tree

	// Hashes maps paths to content hashes from extract time (optional)
	Hashes map[string]string

	// SnapshotPath is read when Tree is nil
	SnapshotPath string

	// Backup renames each file to a hidden backup before rewriting it
	Backup bool

	// DryRun plans and reports without touching any file
	DryRun bool
}

// CarryRequest represents a request to move sections from one tree to
// another.
type CarryRequest struct {
	// From is the tree to extract from
	From string

	// To is the tree to insert into; it may equal From
	To string

	// Config applies to both trees (default: built-in)
	Config *config.Config

	// SnapshotPath, when set, also saves the extracted sections
	SnapshotPath string

	// Backup renames each file to a hidden backup before rewriting it
	Backup bool

	// DryRun plans and reports without touching any file
	DryRun bool
}
