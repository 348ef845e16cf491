package engine

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danieljhkim/usercode/internal/section"
	"github.com/danieljhkim/usercode/internal/snapshot"
)

// Extract harvests the sections of every matching file under req.Root.
//
// Any read failure or structural error aborts the whole pass: a tree that
// cannot be read completely is not a safe base for a later insert.
func (e *Engine) Extract(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	root, err := e.resolveRoot(req.Root)
	if err != nil {
		return nil, err
	}
	cfg := configOrDefault(req.Config)

	files, err := e.walkSources(root, cfg)
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{
		Root:   root,
		Tree:   section.NewTree(),
		Hashes: make(map[string]string),
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := e.fs.ReadFile(joinRel(root, rel))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		result.Scanned++

		m, err := section.Extract(rel, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if m.Len() == 0 {
			continue
		}

		for _, s := range m.Sections() {
			e.logger.Debug("Extracted section",
				zap.String("file", rel),
				zap.String("section", s.Name),
				zap.Int("line", s.StartLine))
		}
		result.Tree.Put(rel, m)
		result.Hashes[rel] = e.hasher.HashBytes(data)
	}

	e.logger.Info("Extract complete",
		zap.String("root", root),
		zap.Int("scanned", result.Scanned),
		zap.Int("files", result.Tree.Len()),
		zap.Int("sections", result.Tree.SectionCount()))

	if req.SnapshotPath != "" {
		snap := &snapshot.Snapshot{
			Root:   root,
			Tree:   result.Tree,
			Hashes: result.Hashes,
		}
		if err := e.snapshots.Save(req.SnapshotPath, snap); err != nil {
			return nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		result.SnapshotPath = req.SnapshotPath
		e.logger.Debug("Saved snapshot", zap.String("path", req.SnapshotPath))
	}

	return result, nil
}
