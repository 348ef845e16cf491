// Package sentinel recognizes the comment lines that delimit user sections
// in generated source files.
//
// A user section is opened by a line of the form
//
//	/* USER CODE BEGIN <name> */
//
// and closed by the matching
//
//	/* USER CODE END <name> */
//
// The marker must be the only content on its line apart from surrounding
// whitespace. Everything else is a plain line.
package sentinel

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind classifies a single line.
type Kind int

const (
	// Plain is any line that is not a marker.
	Plain Kind = iota
	// Begin opens a user section.
	Begin
	// End closes a user section.
	End
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Begin:
		return "begin"
	case End:
		return "end"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrAmbiguous is returned when a line matches both marker patterns.
// With the patterns below this cannot happen; seeing it means the patterns
// were changed incorrectly.
var ErrAmbiguous = errors.New("line matches both begin and end markers")

var (
	beginPattern = regexp.MustCompile(`^\s*/\* USER CODE BEGIN (.*) \*/\s*$`)
	endPattern   = regexp.MustCompile(`^\s*/\* USER CODE END (.*) \*/\s*$`)
)

// Classify reports whether line is a begin marker, an end marker or a plain
// line. For markers the captured section name is returned verbatim.
// The line may carry its terminator; trailing "\n" or "\r\n" is treated as
// whitespace.
func Classify(line string) (Kind, string, error) {
	b := beginPattern.FindStringSubmatch(line)
	e := endPattern.FindStringSubmatch(line)

	switch {
	case b != nil && e != nil:
		return Plain, "", fmt.Errorf("%w: %q", ErrAmbiguous, line)
	case b != nil:
		return Begin, b[1], nil
	case e != nil:
		return End, e[1], nil
	default:
		return Plain, "", nil
	}
}

// BeginLine renders the canonical begin marker for name, with a newline.
func BeginLine(name string) string {
	return "/* USER CODE BEGIN " + name + " */\n"
}

// EndLine renders the canonical end marker for name, with a newline.
func EndLine(name string) string {
	return "/* USER CODE END " + name + " */\n"
}
