// Package engine provides the tree-level orchestration for usercode.
//
// The engine sits between the CLI and the per-file section machinery. It
// walks a source tree, runs the section scanner on every matching file, and
// coordinates the side effects of a merge: backups, atomic rewrites, and
// fallback files for content that found no home.
//
// Key operations:
//   - Extract: harvest sections from a tree, optionally into a snapshot
//   - Insert: splice harvested sections back into a (regenerated) tree
//   - Carry: extract from one tree and insert into another in one call
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/danieljhkim/usercode/internal/config"
	"github.com/danieljhkim/usercode/internal/fsops"
	"github.com/danieljhkim/usercode/internal/hash"
	"github.com/danieljhkim/usercode/internal/snapshot"
)

// Engine orchestrates all usercode operations.
// It is the main API surface called by the CLI.
type Engine struct {
	fs        fsops.FS
	hasher    hash.Hasher
	snapshots *snapshot.Manager
	logger    *zap.Logger
}

// New creates a new Engine with the given dependencies. A nil logger
// discards diagnostics.
func New(fs fsops.FS, hasher hash.Hasher, snapshots *snapshot.Manager, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fs:        fs,
		hasher:    hasher,
		snapshots: snapshots,
		logger:    logger,
	}
}

// resolveRoot returns the absolute form of root after checking that it is
// an existing directory.
func (e *Engine) resolveRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: root directory is required", ErrValidation)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := e.fs.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrValidation, abs)
	}
	return abs, nil
}

func configOrDefault(cfg *config.Config) *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// joinRel joins a root-relative slash path onto root.
func joinRel(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
