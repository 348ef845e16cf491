package engine

import (
	"context"
	"fmt"
)

// Carry extracts the sections of req.From and inserts them into req.To.
//
// This is the regeneration flow in one call: From is the tree the user
// edited, To is the freshly generated one. When both name the same
// directory the tree is rewritten in place. A dry run saves no snapshot.
func (e *Engine) Carry(ctx context.Context, req *CarryRequest) (*CarryResult, error) {
	if req.To == "" {
		return nil, fmt.Errorf("%w: destination directory is required", ErrValidation)
	}

	snapPath := req.SnapshotPath
	if req.DryRun {
		snapPath = ""
	}

	extracted, err := e.Extract(ctx, &ExtractRequest{
		Root:         req.From,
		Config:       req.Config,
		SnapshotPath: snapPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", req.From, err)
	}

	result := &CarryResult{Extract: extracted}

	inserted, err := e.Insert(ctx, &InsertRequest{
		Root:   req.To,
		Config: req.Config,
		Tree:   extracted.Tree,
		Hashes: extracted.Hashes,
		Backup: req.Backup,
		DryRun: req.DryRun,
	})
	result.Insert = inserted
	if err != nil {
		return result, err
	}
	return result, nil
}
