package section

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func mustExtract(t *testing.T, text string) *Map {
	t.Helper()
	m, err := Extract("test.c", strings.NewReader(text))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return m
}

func mustMerge(t *testing.T, text string, m *Map) *MergeResult {
	t.Helper()
	res, err := Merge("test.c", strings.NewReader(text), m)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	return res
}

func TestExtract_InitScenario(t *testing.T) {
	src := lines(
		"int x;",
		"/* USER CODE BEGIN Init */",
		"foo();",
		"/* USER CODE END Init */",
		"int y;",
	)

	m := mustExtract(t, src)

	want := []Section{{Name: "Init", Content: "foo();\n", StartLine: 2}}
	if diff := cmp.Diff(want, m.Sections()); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_OrderAndBlankSections(t *testing.T) {
	src := lines(
		"/* USER CODE BEGIN Includes */",
		"#include \"app.h\"",
		"/* USER CODE END Includes */",
		"void f(void) {",
		"  /* USER CODE BEGIN 1 */",
		"",
		"  /* USER CODE END 1 */",
		"  /* USER CODE BEGIN WHILE */",
		"  while (1) {",
		"    tick();",
		"  /* USER CODE END WHILE */",
		"}",
	)

	m := mustExtract(t, src)

	want := []Section{
		{Name: "Includes", Content: "#include \"app.h\"\n", StartLine: 1},
		{Name: "1", Content: "\n", StartLine: 5},
		{Name: "WHILE", Content: "  while (1) {\n    tick();\n", StartLine: 8},
	}
	if diff := cmp.Diff(want, m.Sections()); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}

	if dropped := m.DropBlank(); dropped != 1 {
		t.Errorf("DropBlank() = %d, want 1", dropped)
	}
	if diff := cmp.Diff([]string{"Includes", "WHILE"}, m.Names()); diff != "" {
		t.Errorf("names after DropBlank (-want +got):\n%s", diff)
	}
}

func TestExtract_NoSections(t *testing.T) {
	m := mustExtract(t, lines("int main(void) {", "  return 0;", "}"))
	if m.Len() != 0 {
		t.Errorf("expected no sections, got %v", m.Names())
	}
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		problem  Problem
		line     int
		secName  string
		openName string
	}{
		{
			name: "nested begin",
			src: lines(
				"/* USER CODE BEGIN A */",
				"a();",
				"/* USER CODE BEGIN B */",
				"/* USER CODE END B */",
				"/* USER CODE END A */",
			),
			problem:  ProblemNestedBegin,
			line:     3,
			secName:  "B",
			openName: "A",
		},
		{
			name:    "end without begin",
			src:     lines("int x;", "/* USER CODE END A */"),
			problem: ProblemUnmatchedEnd,
			line:    2,
			secName: "A",
		},
		{
			name: "mismatched end",
			src: lines(
				"/* USER CODE BEGIN A */",
				"/* USER CODE END B */",
			),
			problem:  ProblemMismatchEnd,
			line:     2,
			secName:  "B",
			openName: "A",
		},
		{
			name: "unterminated section",
			src: lines(
				"int x;",
				"/* USER CODE BEGIN A */",
				"a();",
			),
			problem:  ProblemUnterminated,
			line:     2,
			secName:  "A",
			openName: "A",
		},
		{
			name: "duplicate name",
			src: lines(
				"/* USER CODE BEGIN A */",
				"/* USER CODE END A */",
				"/* USER CODE BEGIN A */",
				"/* USER CODE END A */",
			),
			problem: ProblemDuplicate,
			line:    3,
			secName: "A",
		},
	}

	for _, tt := range tests {
		for _, mode := range []string{"extract", "merge"} {
			t.Run(tt.name+"/"+mode, func(t *testing.T) {
				var err error
				if mode == "extract" {
					_, err = Extract("Src/bad.c", strings.NewReader(tt.src))
				} else {
					var res *MergeResult
					res, err = Merge("Src/bad.c", strings.NewReader(tt.src), NewMap())
					if res != nil {
						t.Error("Merge() returned output for a malformed file")
					}
				}

				if !errors.Is(err, ErrStructural) {
					t.Fatalf("error = %v, want ErrStructural", err)
				}
				var se *StructuralError
				if !errors.As(err, &se) {
					t.Fatalf("error %T is not *StructuralError", err)
				}
				if se.Problem != tt.problem || se.Line != tt.line || se.Name != tt.secName || se.Open != tt.openName {
					t.Errorf("got %+v, want problem=%q line=%d name=%q open=%q",
						se, tt.problem, tt.line, tt.secName, tt.openName)
				}
				if se.Path != "Src/bad.c" {
					t.Errorf("Path = %q", se.Path)
				}
				if !strings.Contains(err.Error(), "Src/bad.c line") {
					t.Errorf("message lacks location: %v", err)
				}
			})
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	inputs := map[string]string{
		"lf": lines(
			"#include \"main.h\"",
			"/* USER CODE BEGIN Includes */",
			"#include <string.h>",
			"/* USER CODE END Includes */",
			"int main(void)",
			"{",
			"  /* USER CODE BEGIN 1 */",
			"  /* USER CODE END 1 */",
			"  /* USER CODE BEGIN WHILE */",
			"  while (1)",
			"  {",
			"    /* keep spaces */   ",
			"  /* USER CODE END WHILE */",
			"  }",
			"}",
		),
		"crlf": "a\r\n/* USER CODE BEGIN x */\r\nbody\r\n/* USER CODE END x */\r\nz\r\n",
		"no final newline": "a\n/* USER CODE BEGIN x */\nbody\n/* USER CODE END x */\nz",
		"empty file":       "",
		"marker on last line without newline": "/* USER CODE BEGIN x */\n\tx();\n/* USER CODE END x */",
	}

	for name, src := range inputs {
		t.Run(name, func(t *testing.T) {
			m := mustExtract(t, src)
			res := mustMerge(t, src, m)

			if got := string(res.Content); got != src {
				t.Errorf("merge(extract(F), F) != F\n got: %q\nwant: %q", got, src)
			}
			if m.Len() != 0 {
				t.Errorf("map not fully consumed: %v", m.Names())
			}
			if len(res.NotFound) != 0 || len(res.Orphaned) != 0 {
				t.Errorf("unexpected notices: notFound=%v orphaned=%v", res.NotFound, res.Orphaned)
			}
		})
	}
}

func TestMerge_RegeneratedFile(t *testing.T) {
	old := lines(
		"int x;",
		"/* USER CODE BEGIN Init */",
		"foo();",
		"/* USER CODE END Init */",
		"int y;",
	)
	regenerated := lines(
		"long x = 0;",
		"/* USER CODE BEGIN Init */",
		"/* USER CODE END Init */",
		"long y = 0;",
		"void extra(void);",
	)

	m := mustExtract(t, old)
	res := mustMerge(t, regenerated, m)

	want := lines(
		"long x = 0;",
		"/* USER CODE BEGIN Init */",
		"foo();",
		"/* USER CODE END Init */",
		"long y = 0;",
		"void extra(void);",
	)
	if diff := cmp.Diff(want, string(res.Content)); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	if len(res.Inserted) != 1 || res.Inserted[0].Name != "Init" || res.Inserted[0].StartLine != 2 {
		t.Errorf("Inserted = %+v", res.Inserted)
	}
}

func TestMerge_ReplacesStaleBody(t *testing.T) {
	m := NewMap()
	m.Put(Section{Name: "A", Content: "new();\n", StartLine: 1})

	res := mustMerge(t, lines("/* USER CODE BEGIN A */", "generated_placeholder();", "/* USER CODE END A */"), m)

	want := lines("/* USER CODE BEGIN A */", "new();", "/* USER CODE END A */")
	if got := string(res.Content); got != want {
		t.Errorf("Merge() = %q, want %q", got, want)
	}
}

func TestMerge_MissingContent(t *testing.T) {
	m := NewMap()
	m.Put(Section{Name: "X", Content: "x();\n", StartLine: 2})

	src := lines(
		"/* USER CODE BEGIN X */",
		"/* USER CODE END X */",
		"/* USER CODE BEGIN Y */",
		"stale();",
		"/* USER CODE END Y */",
	)
	res := mustMerge(t, src, m)

	want := lines(
		"/* USER CODE BEGIN X */",
		"x();",
		"/* USER CODE END X */",
		"/* USER CODE BEGIN Y */",
		"/* USER CODE END Y */",
	)
	if diff := cmp.Diff(want, string(res.Content)); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	wantNotFound := []Notice{{Path: "test.c", Section: "Y", Line: 3}}
	if diff := cmp.Diff(wantNotFound, res.NotFound); diff != "" {
		t.Errorf("NotFound mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_OrphansStayInMap(t *testing.T) {
	m := NewMap()
	m.Put(Section{Name: "Keep", Content: "k();\n", StartLine: 4})
	m.Put(Section{Name: "Gone", Content: "g();\n", StartLine: 9})

	res := mustMerge(t, lines("/* USER CODE BEGIN Keep */", "/* USER CODE END Keep */"), m)

	wantOrphans := []Section{{Name: "Gone", Content: "g();\n", StartLine: 9}}
	if diff := cmp.Diff(wantOrphans, res.Orphaned); diff != "" {
		t.Errorf("Orphaned mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Gone"}, m.Names()); diff != "" {
		t.Errorf("map after merge (-want +got):\n%s", diff)
	}
}

func TestMerge_ContentWithoutTrailingNewline(t *testing.T) {
	m := NewMap()
	m.Put(Section{Name: "A", Content: "last();"})

	res := mustMerge(t, lines("/* USER CODE BEGIN A */", "/* USER CODE END A */"), m)

	want := lines("/* USER CODE BEGIN A */", "last();", "/* USER CODE END A */")
	if got := string(res.Content); got != want {
		t.Errorf("Merge() = %q, want %q", got, want)
	}
}

func TestMerge_NilMap(t *testing.T) {
	res, err := Merge("test.c", strings.NewReader(lines("/* USER CODE BEGIN A */", "a();", "/* USER CODE END A */")), nil)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(res.NotFound) != 1 {
		t.Errorf("NotFound = %v, want one notice", res.NotFound)
	}
}

func TestRender(t *testing.T) {
	m := NewMap()
	m.Put(Section{Name: "Init", Content: "foo();\n"})
	m.Put(Section{Name: "2", Content: ""})
	m.Put(Section{Name: "tail", Content: "no_newline();"})

	want := lines(
		"/* USER CODE BEGIN Init */",
		"foo();",
		"/* USER CODE END Init */",
		"/* USER CODE BEGIN 2 */",
		"/* USER CODE END 2 */",
		"/* USER CODE BEGIN tail */",
		"no_newline();",
		"/* USER CODE END tail */",
	)
	got := string(Render(m))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}

	// A rendered dump extracts back to the same sections.
	back := mustExtract(t, got)
	if diff := cmp.Diff([]string{"Init", "2", "tail"}, back.Names()); diff != "" {
		t.Errorf("extract(Render()) names (-want +got):\n%s", diff)
	}
}
