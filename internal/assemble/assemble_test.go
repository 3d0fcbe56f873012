package assemble

import (
	"bytes"
	"testing"
)

func mustAssemble(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	result, fatal := Assemble("test.8o", src, opts)
	if fatal != nil {
		t.Fatalf("expected a successful compile, got fatal: %s", fatal.Error())
	}
	return result
}

func TestMainAsFirstStatementCollapsesTrampoline(t *testing.T) {
	result := mustAssemble(t, ": main\n  va := 0xBC\n  loop again\n", Options{})

	// main is the first statement, right after the reserved slot, so the
	// slot is reclaimed instead of ever becoming a jump: va := 0xBC lands
	// at startAddress itself, and `loop again` at startAddress+2 jumps to
	// itself.
	want := []byte{0x6A, 0xBC, 0x12, 0x02}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected no leading trampoline, got % X", result.ROM)
	}
}

func TestOrgAtStartAddressSuppressesTrampoline(t *testing.T) {
	result := mustAssemble(t, ":org 0x200\n: main\nclear\n", Options{})

	want := []byte{0x00, 0xE0}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected no trampoline jump when main begins at startAddress, got % X", result.ROM)
	}
}

func TestForwardReferenceResolvesToJump(t *testing.T) {
	result := mustAssemble(t, ": main\njump skip\nclear\n: skip\nreturn\n", Options{})

	// main collapses (no trampoline), so `jump skip` is the first
	// instruction. It must resolve to the address right after `clear`.
	want := []byte{0x12, 0x04, 0x00, 0xE0, 0x00, 0xEE}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected a forward-referenced jump to 0x204, got % X", result.ROM)
	}
}

func TestUnresolvedForwardReferenceIsFatal(t *testing.T) {
	_, fatal := Assemble("test.8o", ": main\njump nowhere\n", Options{})
	if fatal == nil {
		t.Fatalf("expected an unresolved forward reference to be fatal")
	}
}

func TestMissingMainIsFatal(t *testing.T) {
	_, fatal := Assemble("test.8o", "clear\n", Options{})
	if fatal == nil {
		t.Fatalf("expected a program with no 'main' label to be fatal")
	}
}

func TestDataOverlapIsFatal(t *testing.T) {
	_, fatal := Assemble("test.8o", ": main\nclear\n:org 0x300\n0\n:org 0x300\n1\n", Options{})
	if fatal == nil {
		t.Fatalf("expected overlapping writes to the same address to be fatal")
	}
}

func TestUnmatchedBeginIsFatal(t *testing.T) {
	_, fatal := Assemble("test.8o", ": main\nif v0 == 0x00 begin\nclear\n", Options{})
	if fatal == nil {
		t.Fatalf("expected an unterminated 'if ... begin' to be fatal")
	}
}

func TestUnmatchedLoopIsFatal(t *testing.T) {
	_, fatal := Assemble("test.8o", ": main\nloop\nclear\n", Options{})
	if fatal == nil {
		t.Fatalf("expected an unterminated 'loop' to be fatal")
	}
}

func TestMacroExpansionSplicesBody(t *testing.T) {
	src := ": main\n" +
		":macro double X { X X }\n" +
		"double clear\n"
	result := mustAssemble(t, src, Options{})

	want := []byte{0x00, 0xE0, 0x00, 0xE0}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected the macro body spliced twice, got % X", result.ROM)
	}
}

func TestStringModeExpandsPerCharacter(t *testing.T) {
	src := ": main\n" +
		":stringmode greeting \"ab\" { VALUE }\n" +
		"greeting \"ab\"\n"
	result := mustAssemble(t, src, Options{})

	// VALUE for 'a' (0) then 'b' (1), each emitted through compileFallback's
	// bare-number-literal path.
	want := []byte{0x00, 0x01}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected one byte per alphabet character, got % X", result.ROM)
	}
}

func TestCustomStartAddressIsHonored(t *testing.T) {
	result := mustAssemble(t, ": main\nclear\n", Options{StartAddress: 0x600})
	if result.StartAddress != 0x600 {
		t.Fatalf("expected StartAddress 0x600, got 0x%X", result.StartAddress)
	}
	want := []byte{0x00, 0xE0}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected no trampoline relative to the custom start address, got % X", result.ROM)
	}
}

func TestBreakpointAndMonitorRideInDebugMap(t *testing.T) {
	result := mustAssemble(t, ": main\n:breakpoint entry\nclear\n:monitor v0watch v0 1\n", Options{})

	if name, ok := result.DebugMap.BreakpointForAddr(0x200); !ok || name != "entry" {
		t.Fatalf("expected a breakpoint named 'entry' at 0x200, got %q ok=%v", name, ok)
	}
	if _, ok := result.DebugMap.Monitor("v0watch"); !ok {
		t.Fatalf("expected a monitor named 'v0watch'")
	}
}

func TestConstAndAliasResolveInExpressions(t *testing.T) {
	src := ": main\n:const SIZE 8\n:alias helper v3\nhelper := SIZE\n"
	result := mustAssemble(t, src, Options{})
	// v3 := 8 -> 0x63 0x08, with no leading trampoline.
	want := []byte{0x63, 0x08}
	if !bytes.Equal(result.ROM, want) {
		t.Fatalf("expected const/alias resolution, got % X", result.ROM)
	}
}
