package symtab

import "testing"

func TestNewTablePredefinedAliasesAndKeys(t *testing.T) {
	tb := New()
	if tb.Aliases["unpack-hi"] != 0 || tb.Aliases["unpack-lo"] != 1 {
		t.Fatalf("expected unpack-hi/unpack-lo aliases 0/1, got %+v", tb.Aliases)
	}
	c, ok := tb.Constants["OCTO_KEY_4"]
	if !ok || c.Value != 0xC {
		t.Fatalf("expected OCTO_KEY_4 == 0xC (QWERTY overlay), got %+v ok=%v", c, ok)
	}
	c, ok = tb.Constants["OCTO_KEY_Q"]
	if !ok || c.Value != 0x4 {
		t.Fatalf("expected OCTO_KEY_Q == 0x4, got %+v ok=%v", c, ok)
	}
}

func TestArenaInterning(t *testing.T) {
	arena := NewArena()
	a := arena.Intern("counter")
	b := arena.Intern("counter")
	if a != b {
		t.Fatalf("expected interned strings to compare equal")
	}
}

func TestProtoRefLifecycle(t *testing.T) {
	tb := New()
	tb.AddProtoRef("loop_start", 1, 1, 0x200, 12)
	tb.AddProtoRef("loop_start", 2, 1, 0x210, 12)

	if _, ok := tb.Protos["loop_start"]; !ok {
		t.Fatalf("expected a prototype for 'loop_start'")
	}

	proto, ok := tb.ResolveProto("loop_start")
	if !ok {
		t.Fatalf("expected ResolveProto to find 'loop_start'")
	}
	if len(proto.Refs) != 2 {
		t.Fatalf("expected 2 recorded refs, got %d", len(proto.Refs))
	}
	if _, stillThere := tb.Protos["loop_start"]; stillThere {
		t.Fatalf("expected ResolveProto to remove the prototype")
	}

	if _, ok := tb.ResolveProto("loop_start"); ok {
		t.Fatalf("expected a second resolve to report not-found")
	}
}

func TestIsDefined(t *testing.T) {
	tb := New()
	if tb.IsDefined("counter") {
		t.Fatalf("expected 'counter' to be undefined")
	}
	tb.Constants["counter"] = &Constant{Value: 1}
	if !tb.IsDefined("counter") {
		t.Fatalf("expected 'counter' to be defined once added as a constant")
	}
	if !tb.IsDefined("loop") {
		t.Fatalf("expected reserved word 'loop' to read as already defined")
	}
}

func TestStringModeAlphabet(t *testing.T) {
	sm := &StringMode{}
	if !sm.Define('a', 0, nil) {
		t.Fatalf("expected first Define of 'a' to succeed")
	}
	if sm.Define('a', 1, nil) {
		t.Fatalf("expected redefining 'a' to fail")
	}
	if !sm.HasChar('a') || sm.HasChar('b') {
		t.Fatalf("expected HasChar to reflect only defined characters")
	}
	if sm.CharToValue['a'] != 0 {
		t.Fatalf("expected CharToValue['a'] == 0, got %d", sm.CharToValue['a'])
	}
}
