package section

import (
	"errors"
	"fmt"
)

// ErrStructural is wrapped by every StructuralError.
var ErrStructural = errors.New("malformed user code markers")

// Problem names the kind of marker inconsistency found in a file.
type Problem string

const (
	ProblemNestedBegin  Problem = "nested begin"
	ProblemUnmatchedEnd Problem = "end without begin"
	ProblemMismatchEnd  Problem = "mismatched end"
	ProblemAmbiguous    Problem = "ambiguous marker"
	ProblemUnterminated Problem = "unterminated section"
	ProblemDuplicate    Problem = "duplicate section"
)

// StructuralError reports marker lines that do not form well-nested,
// matching, unique pairs. A file with a structural error is never rewritten.
type StructuralError struct {
	Path    string
	Line    int
	Problem Problem
	// Name is the section named on the offending line.
	Name string
	// Open is the section open at that point, if any.
	Open string
}

func (e *StructuralError) Error() string {
	var detail string
	switch e.Problem {
	case ProblemNestedBegin:
		detail = fmt.Sprintf("'USER CODE BEGIN %s' inside 'USER CODE BEGIN %s'", e.Name, e.Open)
	case ProblemUnmatchedEnd:
		detail = fmt.Sprintf("'USER CODE END %s' not preceded by 'USER CODE BEGIN %s'", e.Name, e.Name)
	case ProblemMismatchEnd:
		detail = fmt.Sprintf("'USER CODE END %s' does not close 'USER CODE BEGIN %s'", e.Name, e.Open)
	case ProblemUnterminated:
		detail = fmt.Sprintf("'USER CODE BEGIN %s' is never closed", e.Name)
	case ProblemDuplicate:
		detail = fmt.Sprintf("'USER CODE BEGIN %s' repeats a section name", e.Name)
	default:
		detail = string(e.Problem)
	}
	return fmt.Sprintf("%s line %d: %s", e.Path, e.Line, detail)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// Notice is a recoverable finding about one section of one file.
type Notice struct {
	Path    string `json:"path"`
	Section string `json:"section"`
	Line    int    `json:"line"`
}
