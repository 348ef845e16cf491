package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/danieljhkim/usercode/internal/backup"
	"github.com/danieljhkim/usercode/internal/section"
)

// orphanSuffix is appended to a fallback path when the original path is
// taken.
const orphanSuffix = ".orphaned"

// plannedFile is one merged file held in memory until the commit phase.
type plannedFile struct {
	rel     string
	path    string
	mode    os.FileMode
	before  []byte
	after   []byte
	stored  *section.Map // the tree's entry for rel, untouched
	orphans *section.Map // what the merge left over
	report  FileReport
}

// Insert merges the sections of req.Tree into the matching files under
// req.Root that have an entry in the tree.
//
// The pass has two phases. Every file is read and merged in memory first,
// so a structural error anywhere aborts before a single byte is written.
// The commit phase then backs up and rewrites each changed file. A
// filesystem failure in the commit phase only affects that file: its
// content goes back to the tree and ends up in a fallback file. Content
// that no file could take is written out the same way, so the pass never
// drops anything.
func (e *Engine) Insert(ctx context.Context, req *InsertRequest) (*InsertResult, error) {
	root, err := e.resolveRoot(req.Root)
	if err != nil {
		return nil, err
	}
	cfg := configOrDefault(req.Config)

	tree, hashes, err := e.insertSource(root, req)
	if err != nil {
		return nil, err
	}

	files, err := e.walkSources(root, cfg)
	if err != nil {
		return nil, err
	}

	plans, err := e.planInsert(ctx, root, files, tree, hashes)
	if err != nil {
		return nil, err
	}

	result := &InsertResult{
		Root:   root,
		DryRun: req.DryRun,
		Files:  make([]FileReport, 0, len(plans)),
	}

	if req.DryRun {
		e.previewInsert(root, plans, tree, result)
		return result, nil
	}

	for _, p := range plans {
		report, ferr := e.commitFile(p, tree, req.Backup)
		result.Files = append(result.Files, report)
		if ferr != nil {
			result.Errors = append(result.Errors, *ferr)
		}
	}

	result.Errors = append(result.Errors, e.writeFallbacks(root, tree, result)...)

	e.logger.Info("Insert complete",
		zap.String("root", root),
		zap.Int("files", len(result.Files)),
		zap.Int("inserted", result.InsertedCount()),
		zap.Int("fallbacks", len(result.Fallbacks)),
		zap.Int("errors", len(result.Errors)))

	if len(result.Errors) > 0 {
		errs := make([]error, len(result.Errors))
		for i := range result.Errors {
			errs[i] = result.Errors[i]
		}
		return result, fmt.Errorf("%w: %w", ErrPartialInsert, errors.Join(errs...))
	}
	return result, nil
}

// insertSource returns the tree to insert, loading it from a snapshot when
// the request carries none.
func (e *Engine) insertSource(root string, req *InsertRequest) (*section.Tree, map[string]string, error) {
	if req.Tree != nil {
		return req.Tree, req.Hashes, nil
	}

	path := req.SnapshotPath
	if path == "" {
		path = configOrDefault(req.Config).SnapshotPath(root)
	}
	snap, err := e.snapshots.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: snapshot %s (run extract first)", ErrNotFound, path)
		}
		return nil, nil, err
	}
	e.logger.Debug("Loaded snapshot",
		zap.String("path", path),
		zap.Int("files", snap.Tree.Len()),
		zap.Time("created_at", snap.CreatedAt))

	hashes := snap.Hashes
	if req.Hashes != nil {
		hashes = req.Hashes
	}
	return snap.Tree, hashes, nil
}

// planInsert merges every file that has an entry in tree, in memory and
// without modifying tree.
func (e *Engine) planInsert(ctx context.Context, root string, files []string, tree *section.Tree, hashes map[string]string) ([]*plannedFile, error) {
	var plans []*plannedFile
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stored, ok := tree.Get(rel)
		if !ok {
			continue
		}

		path := joinRel(root, rel)
		info, err := e.fs.Lstat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
		}
		before, err := e.fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}

		merged, err := section.Merge(rel, bytes.NewReader(before), stored.Clone())
		if err != nil {
			return nil, err
		}

		p := &plannedFile{
			rel:    rel,
			path:   path,
			mode:   info.Mode().Perm(),
			before: before,
			after:  merged.Content,
			stored: stored,
			report: FileReport{
				Path:      rel,
				Inserted:  refs(merged.Inserted),
				Orphaned:  refs(merged.Orphaned),
				Unchanged: bytes.Equal(before, merged.Content),
			},
		}
		if len(merged.Orphaned) > 0 {
			p.orphans = section.NewMap()
			for _, s := range merged.Orphaned {
				p.orphans.Put(s)
			}
		}
		for _, n := range merged.NotFound {
			p.report.NotFound = append(p.report.NotFound, SectionRef{Name: n.Section, Line: n.Line})
		}
		if h := hashes[rel]; h != "" && h != e.hasher.HashBytes(before) {
			p.report.Regenerated = true
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// commitFile writes one planned file and settles its entry in tree: on
// success only the orphans stay, on failure the full entry does.
func (e *Engine) commitFile(p *plannedFile, tree *section.Tree, withBackup bool) (FileReport, *FileError) {
	report := p.report
	log := e.logger.With(zap.String("file", p.rel))

	tree.Take(p.rel)
	restore := func(err error) (FileReport, *FileError) {
		log.Error("Failed to rewrite file", zap.Error(err))
		tree.Put(p.rel, p.stored)
		report.Inserted = nil
		report.Orphaned = nil
		return report, &FileError{Path: p.rel, Err: err}
	}

	if !report.Unchanged {
		if withBackup {
			bp, err := backup.Path(e.fs, p.path)
			if err != nil {
				return restore(fmt.Errorf("failed to choose backup name: %w", err))
			}
			if err := e.fs.Rename(p.path, bp); err != nil {
				return restore(fmt.Errorf("failed to back up: %w", err))
			}
			log.Info("Backed up file", zap.String("backup", filepath.Base(bp)))
			report.BackupPath = bp

			if err := e.fs.AtomicWrite(p.path, p.after, p.mode); err != nil {
				if rerr := e.fs.Rename(bp, p.path); rerr != nil {
					log.Error("Failed to restore backup", zap.String("backup", bp), zap.Error(rerr))
				} else {
					report.BackupPath = ""
				}
				return restore(fmt.Errorf("failed to write: %w", err))
			}
		} else if err := e.fs.AtomicWrite(p.path, p.after, p.mode); err != nil {
			return restore(fmt.Errorf("failed to write: %w", err))
		}
	}

	for _, s := range report.Inserted {
		log.Info("Inserted section", zap.String("section", s.Name), zap.Int("line", s.Line))
	}
	for _, n := range report.NotFound {
		log.Warn("Section has no stored content", zap.String("section", n.Name), zap.Int("line", n.Line))
	}
	for _, s := range report.Orphaned {
		log.Warn("Section not inserted, no matching markers", zap.String("section", s.Name), zap.Int("line", s.Line))
	}
	if report.Regenerated {
		log.Debug("File changed since extract")
	}

	if p.orphans != nil {
		tree.Put(p.rel, p.orphans)
	}
	return report, nil
}

// fallbackPath picks where to write leftover sections of rel.
func (e *Engine) fallbackPath(root, rel string) (string, error) {
	if err := e.fs.ValidateRelPath(filepath.FromSlash(rel)); err != nil {
		return "", err
	}
	path := joinRel(root, rel)
	exists, err := e.fs.Exists(path)
	if err != nil {
		return "", err
	}
	if !exists {
		return path, nil
	}
	return backup.Free(e.fs, path+orphanSuffix)
}

// writeFallbacks writes every entry left in tree to a standalone file and
// removes it from tree once written.
func (e *Engine) writeFallbacks(root string, tree *section.Tree, result *InsertResult) []FileError {
	var errs []FileError
	for _, rel := range tree.Paths() {
		m, _ := tree.Get(rel)
		log := e.logger.With(zap.String("file", rel))

		path, err := e.fallbackPath(root, rel)
		if err == nil {
			err = e.fs.AtomicWrite(path, section.Render(m), 0644)
		}
		if err != nil {
			log.Error("Failed to write orphaned sections", zap.Strings("sections", m.Names()), zap.Error(err))
			errs = append(errs, FileError{Path: rel, Err: fmt.Errorf("failed to write orphaned sections: %w", err)})
			continue
		}

		log.Warn("Wrote orphaned sections", zap.String("path", path), zap.Strings("sections", m.Names()))
		result.Fallbacks = append(result.Fallbacks, Fallback{Source: rel, Path: path, Sections: m.Names()})
		tree.Take(rel)
	}
	return errs
}

// previewInsert fills result as if the commit phase had run, without
// writing anything or consuming tree.
func (e *Engine) previewInsert(root string, plans []*plannedFile, tree *section.Tree, result *InsertResult) {
	leftover := section.NewTree()
	for _, rel := range tree.Paths() {
		m, _ := tree.Get(rel)
		leftover.Put(rel, m)
	}

	for _, p := range plans {
		report := p.report
		report.UnifiedDiff, report.Additions, report.Deletions = generateUnifiedDiff(p.rel, p.before, p.after)
		result.Files = append(result.Files, report)

		leftover.Take(p.rel)
		if p.orphans != nil {
			leftover.Put(p.rel, p.orphans)
		}
	}

	for _, rel := range leftover.Paths() {
		m, _ := leftover.Get(rel)
		path, err := e.fallbackPath(root, rel)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: rel, Err: err})
			continue
		}
		result.Fallbacks = append(result.Fallbacks, Fallback{Source: rel, Path: path, Sections: m.Names()})
	}
}

func refs(sections []section.Section) []SectionRef {
	if len(sections) == 0 {
		return nil
	}
	out := make([]SectionRef, len(sections))
	for i, s := range sections {
		out[i] = SectionRef{Name: s.Name, Line: s.StartLine}
	}
	return out
}
