package engine

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// generateUnifiedDiff renders a git-style unified diff of one file and
// returns it with its added and deleted line counts. An empty string means
// the contents are equal.
func generateUnifiedDiff(path string, before, after []byte) (string, int, int) {
	if string(before) == string(after) {
		return "", 0, 0
	}

	fromFile := "a/" + path
	if before == nil {
		fromFile = "/dev/null"
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: fromFile,
		ToFile:   "b/" + path,
		Context:  3,
	}
	body, err := difflib.GetUnifiedDiffString(ud)
	if err != nil || body == "" {
		return "", 0, 0
	}

	text := fmt.Sprintf("diff --git a/%s b/%s\n%s", path, path, body)
	additions, deletions := diffStats(text)
	return text, additions, deletions
}

// diffStats counts added and deleted lines. A changed line counts as one of
// each.
func diffStats(text string) (int, int) {
	fd, err := diff.ParseFileDiff([]byte(text))
	if err != nil {
		return 0, 0
	}
	st := fd.Stat()
	return int(st.Added + st.Changed), int(st.Deleted + st.Changed)
}
