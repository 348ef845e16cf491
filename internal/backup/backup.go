// Package backup computes collision-free sibling paths for files that are
// about to be overwritten.
package backup

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Checker reports whether a path is already taken.
// fsops.FS satisfies it.
type Checker interface {
	Exists(path string) (bool, error)
}

// Path returns a hidden backup path for p in the same directory.
//
// /x/y/main.c becomes /x/y/.main.c.1, or .main.c.2 when that exists, and so
// on. A name whose extension is already numeric starts from that number plus
// one. Only existence checks are performed; nothing is written.
func Path(fs Checker, p string) (string, error) {
	candidate := p
	for {
		dir, base := filepath.Split(candidate)
		stem, ext := splitExt(base)
		ext = strings.TrimPrefix(ext, ".")

		switch n, err := strconv.Atoi(ext); {
		case ext == "":
			ext = "1"
		case err == nil && n >= 0:
			ext = strconv.Itoa(n + 1)
		default:
			ext += ".1"
		}

		if !strings.HasPrefix(stem, ".") {
			stem = "." + stem
		}
		candidate = filepath.Join(dir, stem+"."+ext)

		taken, err := fs.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check backup path %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// Free returns p when nothing exists there, otherwise the first of p.1, p.2,
// ... that is unused. Unlike Path the result stays visible.
func Free(fs Checker, p string) (string, error) {
	candidate := p
	for n := 1; ; n++ {
		taken, err := fs.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check path %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = p + "." + strconv.Itoa(n)
	}
}

// splitExt splits a file name into stem and extension (with its dot).
// Leading dots belong to the stem, so ".profile" has no extension.
func splitExt(name string) (string, string) {
	lead := len(name) - len(strings.TrimLeft(name, "."))
	i := strings.LastIndex(name[lead:], ".")
	if i < 0 {
		return name, ""
	}
	i += lead
	return name[:i], name[i:]
}
