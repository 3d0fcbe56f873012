package preprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chiplet-go/octoasm/internal/diag"
)

func run(t *testing.T, src string) string {
	t.Helper()
	p := New(diag.New("main.8o"), nil, nil)
	return p.Run("main.8o", []byte(src))
}

func TestRunPassesPlainSourceThrough(t *testing.T) {
	got := run(t, "main\nloop\n")
	if !strings.Contains(got, "main") || !strings.Contains(got, "loop") {
		t.Fatalf("expected plain tokens to survive unchanged, got %q", got)
	}
}

func TestIfUnlessElseEnd(t *testing.T) {
	p := New(diag.New("main.8o"), nil, map[string]interface{}{"DEBUG": float64(1)})
	got := p.Run("main.8o", []byte(":if DEBUG\nkept_a\n:else\ndropped_a\n:end\n:unless DEBUG\ndropped_b\n:else\nkept_b\n:end\n"))
	if !strings.Contains(got, "kept_a") || strings.Contains(got, "dropped_a") {
		t.Fatalf(":if branch selection wrong: %q", got)
	}
	if !strings.Contains(got, "kept_b") || strings.Contains(got, "dropped_b") {
		t.Fatalf(":unless branch selection wrong: %q", got)
	}
}

func TestNestedIfInsideInactiveBranchStaysSuppressed(t *testing.T) {
	p := New(diag.New("main.8o"), nil, map[string]interface{}{"OUTER": float64(0), "INNER": float64(1)})
	got := p.Run("main.8o", []byte(":if OUTER\n:if INNER\nnever\n:end\n:end\n"))
	if strings.Contains(got, "never") {
		t.Fatalf("expected nested :if inside a false branch to stay fully suppressed, got %q", got)
	}
}

func TestElseWithoutIfIsFatal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected :else without :if to panic")
		}
	}()
	run(t, ":else\n")
}

func TestEndWithoutIfIsFatal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected :end without :if to panic")
		}
	}()
	run(t, ":end\n")
}

func TestSegmentReordersDataAfterCode(t *testing.T) {
	got := run(t, "code_token\n:segment data\ndata_token\n:segment code\nmore_code\n")
	codeIdx := strings.Index(got, "code_token")
	moreIdx := strings.Index(got, "more_code")
	dataIdx := strings.Index(got, "data_token")
	if codeIdx == -1 || moreIdx == -1 || dataIdx == -1 {
		t.Fatalf("expected all tokens present, got %q", got)
	}
	if !(codeIdx < dataIdx && moreIdx < dataIdx) {
		t.Fatalf("expected every code segment to precede the data segment, got %q", got)
	}
}

func TestConstTrackedForLaterConditional(t *testing.T) {
	got := run(t, ":const FLAG 1\n:if FLAG\nvisible\n:end\n")
	if !strings.Contains(got, "visible") {
		t.Fatalf("expected :const to be visible to a later :if, got %q", got)
	}
}

func TestIncludeFlattensAnotherFile(t *testing.T) {
	dir := t.TempDir()
	includedPath := filepath.Join(dir, "helper.8o")
	if err := os.WriteFile(includedPath, []byte("included_token\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mainPath := filepath.Join(dir, "main.8o")
	src := []byte(": main\n:include \"helper.8o\"\nafter_include\n")

	p := New(diag.New(mainPath), nil, nil)
	got := p.Run(mainPath, src)

	if !strings.Contains(got, "included_token") || !strings.Contains(got, "after_include") {
		t.Fatalf("expected the included file's tokens to be flattened in, got %q", got)
	}
}

func TestIncludeCycleIsFatal(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.8o")
	b := filepath.Join(dir, "b.8o")
	if err := os.WriteFile(a, []byte(":include \"b.8o\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte(":include \"a.8o\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a cyclic :include to panic")
		}
	}()

	src, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	p := New(diag.New(a), nil, nil)
	p.Run(a, src)
}

func TestGenerateLineInfosEmitsMarkerOnLineJump(t *testing.T) {
	p := New(diag.New("main.8o"), nil, nil)
	p.GenerateLineInfos = true
	got := p.Run("main.8o", []byte("first\nsecond\n"))
	if !strings.Contains(got, "#@line[") {
		t.Fatalf("expected a #@line marker to be emitted, got %q", got)
	}
}
