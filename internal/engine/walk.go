package engine

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/danieljhkim/usercode/internal/config"
)

// walkSources lists the root-relative, slash-separated paths of all regular
// files under root whose extension is configured, in lexical walk order.
func (e *Engine) walkSources(root string, cfg *config.Config) ([]string, error) {
	exts := cfg.ExtensionSet()
	var files []string

	err := e.fs.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && cfg.Excluded(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !exts[filepath.Ext(d.Name())] {
			return nil
		}
		if !d.Type().IsRegular() {
			e.logger.Debug("Skipping non-regular file", zap.String("file", path))
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return files, nil
}
