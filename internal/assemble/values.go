package assemble

import (
	"strings"

	"github.com/chiplet-go/octoasm/internal/evalexpr"
	"github.com/chiplet-go/octoasm/internal/symtab"
	"github.com/chiplet-go/octoasm/internal/token"
)

// peekIsRegister reports whether the next token names a register - either
// a user alias (any identifier bound by `:alias`) or the bare `v0`..`vF`
// form. Aliases are checked first: an alias can shadow the v-digit
// spelling entirely, matching the source's register_or_alias lookup order.
func (a *Assembler) peekIsRegister() bool {
	t := a.stream.Peek()
	if _, ok := a.table.Aliases[t.Text]; ok {
		return true
	}
	_, ok := registerIndex(t.Text)
	return ok
}

// registerOrAlias consumes one token and resolves it to a register index,
// fatal if it names neither an alias nor a v-digit register.
func (a *Assembler) registerOrAlias() int {
	t := a.stream.Next()
	if idx, ok := a.table.Aliases[t.Text]; ok {
		return idx
	}
	if idx, ok := registerIndex(t.Text); ok {
		return idx
	}
	a.diags.Fatalf("expected register, got %q", displayToken(t))
	return 0
}

// evalBraced adapts the assembler into the evalexpr.Context/TokenSource
// pair and evaluates one `{ ... }` block. The caller has already consumed
// the opening brace.
func (a *Assembler) evalBraced() float64 {
	return evalexpr.Evaluate(a.stream, a)
}

func (a *Assembler) match(text string) bool {
	t := a.stream.Peek()
	if displayToken(t) != text {
		return false
	}
	a.stream.Next()
	return true
}

func (a *Assembler) peekIs(text string) bool {
	return displayToken(a.stream.Peek()) == text
}

// displayToken is how the original lexer's single STRING type let every
// keyword, operator and identifier compare by plain text. Number and
// bracket tokens never match a keyword, so they fall through unchanged.
func displayToken(t token.Token) string {
	switch t.Kind {
	case token.Identifier:
		return t.Text
	default:
		return t.Text
	}
}

func (a *Assembler) expect(text string) {
	if !a.match(text) {
		t := a.stream.Next()
		a.diags.Fatalf("expected %s, got %q", text, displayToken(t))
	}
}

// checkName rejects a user-chosen name that collides with the reserved
// keyword/register namespace or the OCTO_ prefix reserved for predefined
// constants (spec.md §3).
func (a *Assembler) checkName(name, kind string) {
	if strings.HasPrefix(name, "OCTO_") || token.IsReservedWord(name) {
		a.diags.Fatalf("the name '%s' is reserved and cannot be used for a %s", name, kind)
	}
}

// identifierName consumes one token as a user-chosen name: a macro
// parameter, a label, a constant, an alias. Fatal if the token isn't a
// name-shaped token, or if it collides with the reserved namespace.
func (a *Assembler) identifierName(kind string) string {
	t := a.stream.Next()
	if t.Kind == token.Number || t.Kind == token.LCurly || t.Kind == token.RCurly || t.Kind == token.EndOfFile {
		a.diags.Fatalf("expected a name for a %s, got %q", kind, displayToken(t))
	}
	a.checkName(t.Text, kind)
	return t.Text
}

// nameOrString consumes one token for a position that only needs display
// text - `:breakpoint`, `:monitor`'s name, `:assert`'s message, a
// string-mode's alphabet. The source's lexer never distinguished a quoted
// string from a bare word at the type level, so neither do we here.
func (a *Assembler) nameOrString(kind string) string {
	t := a.stream.Next()
	if t.Kind == token.Number || t.Kind == token.LCurly || t.Kind == token.RCurly || t.Kind == token.EndOfFile {
		a.diags.Fatalf("expected %s, got %q", kind, displayToken(t))
	}
	return t.Text
}

// valueRange enforces a value reader's bit-width ceiling and masks the
// result into range, mirroring value_range's four fixed-width checks.
func (a *Assembler) valueRange(n int, mask int, width string) int {
	lo := 0
	if mask == 0xFF {
		lo = -128
	}
	if n < lo || n > mask {
		a.diags.Fatalf("argument %d does not fit in %s", n, width)
	}
	return n & mask
}

// value4bit reads a 4-bit immediate: a number literal or an already-
// defined constant. No forward references are accepted at this width.
func (a *Assembler) value4bit() int {
	return a.valueFixed(0xF, "4 bits", "a 4-bit")
}

// value8bit reads an 8-bit immediate, range [-128,255].
func (a *Assembler) value8bit() int {
	return a.valueFixed(0xFF, "a byte - must be in range [-128,255]", "an 8-bit")
}

func (a *Assembler) valueFixed(mask int, rangeDesc, kindDesc string) int {
	t := a.stream.Next()
	if t.Kind == token.Number {
		return a.valueRange(int(t.Number), mask, rangeDesc)
	}
	if c, ok := a.table.Constants[t.Text]; ok {
		return a.valueRange(int(c.Value), mask, rangeDesc)
	}
	a.valueFail(kindDesc, t)
	return 0
}

// valueFail reports why a value reader couldn't resolve its operand: the
// name is a register, a reserved keyword, or simply undefined.
func (a *Assembler) valueFail(kindDesc string, t token.Token) {
	name := t.Text
	if _, ok := a.table.Aliases[name]; ok {
		a.diags.Fatalf("expected %s value, but found the register %s", kindDesc, name)
	}
	if _, ok := registerIndex(name); ok {
		a.diags.Fatalf("expected %s value, but found the register %s", kindDesc, name)
	}
	if token.IsReservedWord(name) {
		a.diags.Fatalf("expected %s value, but found the keyword '%s'. Missing a token?", kindDesc, name)
	}
	a.diags.Fatalf("expected %s value, but found the undefined name '%s'", kindDesc, name)
}

// value12bit reads a 12-bit address: a number, a constant, or a forward
// reference to a label not yet defined (always permitted at this width -
// jump/call targets are routinely forward).
func (a *Assembler) value12bit() int {
	t := a.stream.Next()
	if t.Kind == token.Number {
		return a.valueRange(int(t.Number), 0xFFF, "12 bits")
	}
	name := t.Text
	if c, ok := a.table.Constants[name]; ok {
		return a.valueRange(int(c.Value), 0xFFF, "12 bits")
	}
	if _, ok := a.table.Aliases[name]; ok {
		a.diags.Fatalf("expected a 12-bit value, but found the register %s", name)
	}
	if _, ok := registerIndex(name); ok {
		a.diags.Fatalf("expected a 12-bit value, but found the register %s", name)
	}
	if token.IsReservedWord(name) {
		a.diags.Fatalf("expected a 12-bit value, but found the keyword '%s'. Missing a token?", name)
	}
	a.checkName(name, "label")
	a.table.AddProtoRef(name, t.Line, t.Column, a.here, 12)
	return 0
}

// value16bit reads a 16-bit value at the given byte offset from `here`.
// canForwardRef is false for the call sites that must resolve immediately:
// `:org`, which moves `here` at once, and debugger monitor addresses, since
// nothing ever patches debug-only metadata after the fact.
func (a *Assembler) value16bit(canForwardRef bool, offset int) int {
	return a.valueWide(canForwardRef, offset, 0xFFFF, 16, "16 bits", "a 16-bit")
}

// value24bit reads a 24-bit value (used only by `:pointer24`).
func (a *Assembler) value24bit(canForwardRef bool, offset int) int {
	return a.valueWide(canForwardRef, offset, 0xFFFFFF, 24, "24 bits", "a 24-bit")
}

func (a *Assembler) valueWide(canForwardRef bool, offset, mask, width int, rangeDesc, kindDesc string) int {
	t := a.stream.Next()
	if t.Kind == token.Number {
		return a.valueRange(int(t.Number), mask, rangeDesc)
	}
	name := t.Text
	if c, ok := a.table.Constants[name]; ok {
		return a.valueRange(int(c.Value), mask, rangeDesc)
	}
	if _, ok := a.table.Aliases[name]; ok {
		a.diags.Fatalf("expected %s value, but found the register %s", kindDesc, name)
	}
	if _, ok := registerIndex(name); ok {
		a.diags.Fatalf("expected %s value, but found the register %s", kindDesc, name)
	}
	if token.IsReservedWord(name) {
		a.diags.Fatalf("expected %s value, but found the keyword '%s'. Missing a token?", kindDesc, name)
	}
	a.checkName(name, "label")
	if !canForwardRef {
		a.diags.Fatalf("the reference to '%s' may not be forward-declared", name)
	}
	a.table.AddProtoRef(name, t.Line, t.Column, a.here+offset, width)
	return 0
}

// valueConstant reads the initializer of a `:const` - a number or an
// already-resolved constant. Forward references are never allowed here:
// `:const` must be able to stamp a value immediately.
func (a *Assembler) valueConstant() symtab.Constant {
	t := a.stream.Next()
	if t.Kind == token.Number {
		return symtab.Constant{Value: t.Number}
	}
	name := t.Text
	if c, ok := a.table.Constants[name]; ok {
		return symtab.Constant{Value: c.Value}
	}
	if _, ok := a.table.Protos[name]; ok {
		a.diags.Fatalf("a constant reference to '%s' may not be forward-declared", name)
	}
	a.valueFail("a constant", t)
	return symtab.Constant{}
}

// resolveLabel finishes a previously forward-declared label (or defines a
// brand-new one), patching every recorded reference now that the address
// is known. offset is 0 for `:` and 1 for `:next` (the next instruction
// slot, used to label the byte immediately following this one).
func (a *Assembler) resolveLabel(offset int) {
	target := a.here + offset
	name := a.identifierName("label")

	if _, ok := a.table.Constants[name]; ok {
		a.diags.Fatalf("the name '%s' has already been defined", name)
	}
	if _, ok := a.table.Aliases[name]; ok {
		a.diags.Fatalf("the name '%s' is already used by an alias", name)
	}

	// `main` collapses the reserved jump slot instead of ever being jumped
	// to through it, in the two cases where the jump would be pointless:
	// resolving to startAddress+2 (main is the very first statement, right
	// after the reserved slot run() laid down) or to startAddress itself
	// (an explicit `:org <startAddress>` put main's code at file offset 0,
	// overlapping the slot). Either way the slot is reclaimed so the next
	// emitted byte overwrites it, and main is pinned at startAddress - only
	// a label that resolves somewhere else leaves the slot to be patched
	// into a real trampoline once compilation finishes.
	if name == "main" && (target == a.startAddress || target == a.startAddress+2) {
		a.hasMain = false
		a.here = a.startAddress
		target = a.startAddress
		a.rom.bytes[a.startAddress] = 0
		a.rom.used[a.startAddress] = false
		a.rom.bytes[a.startAddress+1] = 0
		a.rom.used[a.startAddress+1] = false
	}

	a.table.Constants[name] = &symtab.Constant{Value: float64(target)}

	proto, ok := a.table.ResolveProto(name)
	if !ok {
		return
	}
	for _, ref := range proto.Refs {
		a.patchProtoRef(name, ref, target)
	}
}

// patchProtoRef writes target into one previously reserved patch site, per
// spec.md §4.5.3. A site is 12, 16 or 24 bits wide; a 12- or 16-bit site
// inside an `:unpack` pair is told apart from a plain one by inspecting the
// byte already sitting at the patch site rather than by threading extra
// bookkeeping through the value readers.
func (a *Assembler) patchProtoRef(name string, ref symtab.Ref, target int) {
	switch {
	case ref.Width == 16 && (a.rom.bytes[ref.Address]&0xF0) == 0x60:
		// :unpack long target - two 6-register-immediate instructions
		a.rom.bytes[ref.Address+1] = byte(target >> 8)
		a.rom.bytes[ref.Address+3] = byte(target)
	case ref.Width == 16:
		// a plain i := long target, or a :pointer/:pointer16 slot
		if target&0xFFFF != target {
			a.diags.Fatalf("value 0x%X for label '%s' does not fit in 16 bits", target, name)
		}
		a.rom.bytes[ref.Address] = byte(target >> 8)
		a.rom.bytes[ref.Address+1] = byte(target)
	case ref.Width == 24:
		if target&0xFFFFFF != target {
			a.diags.Fatalf("value 0x%X for label '%s' does not fit in 24 bits", target, name)
		}
		a.rom.bytes[ref.Address] = byte(target >> 16)
		a.rom.bytes[ref.Address+1] = byte(target >> 8)
		a.rom.bytes[ref.Address+2] = byte(target)
	case (a.rom.bytes[ref.Address] & 0xF0) == 0x60:
		// :unpack target (4/12-bit split across two 6-register immediates)
		a.rom.bytes[ref.Address+1] = (a.rom.bytes[ref.Address+1] & 0xF0) | byte((target>>8)&0xF)
		a.rom.bytes[ref.Address+3] = byte(target)
	default:
		// a 12-bit reference inside a normal two-byte instruction
		if target&0xFFF != target {
			a.diags.Fatalf("value 0x%X for label '%s' does not fit in 12 bits", target, name)
		}
		a.rom.bytes[ref.Address] = (a.rom.bytes[ref.Address] & 0xF0) | byte((target>>8)&0xF)
		a.rom.bytes[ref.Address+1] = byte(target)
	}
}
