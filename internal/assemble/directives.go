package assemble

import (
	"github.com/chiplet-go/octoasm/internal/symtab"
	"github.com/chiplet-go/octoasm/internal/token"
)

// doUnpack implements `:unpack`. The long form splits a 16-bit target
// across two load-immediate instructions using the predefined
// unpack-hi/unpack-lo aliases; the short form packs a literal 4-bit nibble
// into the top of a 12-bit target instead of reading it from a label.
func (a *Assembler) doUnpack() {
	var v int
	if a.match("long") {
		v = a.value16bit(true, 0)
	} else {
		nibble := a.value4bit()
		v = (nibble << 12) | a.value12bit()
	}
	rh := a.table.Aliases["unpack-hi"]
	rl := a.table.Aliases["unpack-lo"]
	a.instruction(0x60|byte(rh), byte(v>>8))
	a.instruction(0x60|byte(rl), byte(v))
}

func (a *Assembler) doBreakpoint() {
	name := a.nameOrString("a breakpoint name")
	a.table.Breakpoints[a.here] = name
}

// doMonitor implements `:monitor NAME register-or-address [length|"format"]`.
// Purely descriptive: it never emits a byte, only a debug-map annotation.
func (a *Assembler) doMonitor() {
	name := a.nameOrString("a monitor name")

	if a.peekIsRegister() {
		base := a.registerOrAlias()
		m := symtab.Monitor{Kind: symtab.MonitorRegister, Base: base}
		if a.stream.Peek().Kind == token.Number {
			m.LengthOrFormat = a.value4bit()
		} else {
			m.LengthOrFormat = a.nameOrString("a monitor format")
		}
		a.table.Monitors[name] = m
		return
	}

	base := a.value16bit(false, 0)
	m := symtab.Monitor{Kind: symtab.MonitorMemory, Base: base}
	if a.stream.Peek().Kind == token.Number {
		m.LengthOrFormat = a.value16bit(false, 0)
	} else {
		m.LengthOrFormat = a.nameOrString("a monitor format")
	}
	a.table.Monitors[name] = m
}

func (a *Assembler) doAssert() {
	var message string
	if !a.peekIs("{") {
		message = a.nameOrString("an assertion message")
	}
	a.expect("{")
	if a.evalBraced() == 0 {
		if message != "" {
			a.diags.Fatalf("assertion failed: %s", message)
		}
		a.diags.Fatalf("assertion failed")
	}
}

func (a *Assembler) doAlias() {
	name := a.identifierName("alias")
	if _, ok := a.table.Constants[name]; ok {
		a.diags.Fatalf("the name '%s' is already used by a constant", name)
	}
	var v int
	if a.match("{") {
		v = int(a.evalBraced())
	} else {
		v = a.registerOrAlias()
	}
	if v < 0 || v > 15 {
		a.diags.Fatalf("register index must be in the range [0,F]")
	}
	a.table.Aliases[name] = v
}

func (a *Assembler) doByte() {
	var v int
	if a.match("{") {
		v = int(a.evalBraced())
	} else {
		v = a.value8bit()
	}
	a.append(byte(v))
}

func (a *Assembler) doPointer16() {
	var addr int
	if a.match("{") {
		addr = int(a.evalBraced())
	} else {
		addr = a.value16bit(true, 0)
	}
	a.instruction(byte(addr>>8), byte(addr))
}

func (a *Assembler) doPointer24() {
	var addr int
	if a.match("{") {
		addr = int(a.evalBraced())
	} else {
		addr = a.value24bit(true, 0)
	}
	a.append(byte(addr >> 16))
	a.instruction(byte(addr>>8), byte(addr))
}

func (a *Assembler) doOrg() {
	if a.match("{") {
		a.here = RAMMask & int(a.evalBraced())
		return
	}
	a.here = a.value16bit(false, 0)
}

func (a *Assembler) doCall() {
	if a.match("{") {
		a.immediate(0x20, 0xFFF&int(a.evalBraced()))
		return
	}
	a.immediate(0x20, a.value12bit())
}

func (a *Assembler) doConst() {
	name := a.identifierName("constant")
	if _, ok := a.table.Constants[name]; ok {
		a.diags.Fatalf("the name '%s' has already been defined", name)
	}
	c := a.valueConstant()
	a.table.Constants[name] = &c
}

func (a *Assembler) doCalc() {
	name := a.identifierName("calculated constant")
	if existing, ok := a.table.Constants[name]; ok && !existing.Mutable {
		a.diags.Fatalf("cannot redefine the name '%s' with :calc", name)
	}
	a.expect("{")
	v := a.evalBraced()
	a.table.Constants[name] = &symtab.Constant{Value: v, Mutable: true}
}
