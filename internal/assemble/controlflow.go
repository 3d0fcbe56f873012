package assemble

// conditional compiles `REG OP [VALUE]` into the skip instruction that
// belongs at this call site. negated chooses which polarity of the
// written operator to emit:
//
//   - "if ... then" (negated=false) needs the OPPOSITE of the written
//     comparison, because a single skip instruction must skip over the
//     one statement that follows exactly when the written condition is
//     FALSE - so "if vx == 4 then ..." compiles to "skip if vx != 4".
//   - "if ... begin" and "while" (negated=true) need the SAME polarity as
//     written, because the skip instruction here guards a jump-over-the-
//     block: skip the jump (falling into the block) exactly when the
//     written condition is TRUE.
func (a *Assembler) conditional(negated bool) {
	reg := a.registerOrAlias()
	op := a.stream.Next()
	opText := op.Text

	want := func(pos, neg string) bool {
		if negated {
			return opText == neg
		}
		return opText == pos
	}

	switch {
	case want("==", "!="):
		if a.peekIsRegister() {
			a.instruction(0x90|byte(reg), byte(a.registerOrAlias()<<4))
		} else {
			a.instruction(0x40|byte(reg), byte(a.value8bit()))
		}
	case want("!=", "=="):
		if a.peekIsRegister() {
			a.instruction(0x50|byte(reg), byte(a.registerOrAlias()<<4))
		} else {
			a.instruction(0x30|byte(reg), byte(a.value8bit()))
		}
	case want("key", "-key"):
		a.instruction(0xE0|byte(reg), 0xA1)
	case want("-key", "key"):
		a.instruction(0xE0|byte(reg), 0x9E)
	case want(">", "<="):
		a.pseudoConditional(reg, 0x5, 0x4F)
	case want("<", ">="):
		a.pseudoConditional(reg, 0x7, 0x4F)
	case want(">=", "<"):
		a.pseudoConditional(reg, 0x7, 0x3F)
	case want("<=", ">"):
		a.pseudoConditional(reg, 0x5, 0x3F)
	default:
		a.diags.Fatalf("expected conditional operator, got %q", opText)
	}
}

// pseudoConditional implements the four ordering comparisons (>, <, >=,
// <=), which CHIP-8 has no native opcode for: it computes the comparison
// into VF via subtraction (sub picks SUB or SUBN) and then tests VF with
// comp, a packed (skip-opcode, register F) byte pair.
func (a *Assembler) pseudoConditional(reg, sub, comp int) {
	if a.peekIsRegister() {
		a.instruction(0x8F, byte(a.registerOrAlias()<<4))
	} else {
		a.instruction(0x6F, byte(a.value8bit()))
	}
	a.instruction(0x8F, byte((reg<<4)|sub))
	a.instruction(byte(comp), 0x00)
}

func (a *Assembler) doIf() {
	// look past `REG OP [VALUE]` to learn whether this is the `then` or the
	// `begin` form before emitting: key/-key take no operand.
	index := 3
	if op := displayToken(a.stream.peekAt(1)); op == "key" || op == "-key" {
		index = 2
	}
	a.conditional(displayToken(a.stream.peekAt(index)) == "begin")
	switch {
	case a.match("then"):
		return
	case a.match("begin"):
		line, col := a.currentLine, a.currentColumn
		a.branches = append(a.branches, FlowFrame{Addr: a.here, Line: line, Column: col, Kind: "begin"})
		a.instruction(0x00, 0x00) // reserved jump-to-end slot
	default:
		a.diags.Fatalf("expected 'then' or 'begin'")
	}
}

func (a *Assembler) doElse() {
	if len(a.branches) == 0 {
		a.diags.Fatalf("this 'else' does not have a matching 'begin'")
	}
	top := a.branches[len(a.branches)-1]
	a.patchJump(top.Addr, a.here+2)
	a.branches = a.branches[:len(a.branches)-1]
	a.branches = append(a.branches, FlowFrame{Addr: a.here, Line: a.currentLine, Column: a.currentColumn, Kind: "else"})
	a.instruction(0x00, 0x00) // reserved jump-past-else slot
}

func (a *Assembler) doEnd() {
	if len(a.branches) == 0 {
		a.diags.Fatalf("this 'end' does not have a matching 'begin'")
	}
	top := a.branches[len(a.branches)-1]
	a.branches = a.branches[:len(a.branches)-1]
	a.patchJump(top.Addr, a.here)
}

func (a *Assembler) doLoop() {
	a.loops = append(a.loops, FlowFrame{Addr: a.here, Line: a.currentLine, Column: a.currentColumn, Kind: "loop"})
	// every loop pushes a sentinel onto whiles so `again` knows where its
	// run of `while`s began, even if there were none.
	a.whiles = append(a.whiles, FlowFrame{Addr: -1, Line: a.currentLine, Column: a.currentColumn, Kind: "loop"})
}

func (a *Assembler) doWhile() {
	if len(a.loops) == 0 {
		a.diags.Fatalf("this 'while' is not within a loop")
	}
	a.conditional(true)
	a.whiles = append(a.whiles, FlowFrame{Addr: a.here, Line: a.currentLine, Column: a.currentColumn, Kind: "while"})
	a.immediate(0x10, 0) // forward jump, patched by `again`
}

func (a *Assembler) doAgain() {
	if len(a.loops) == 0 {
		a.diags.Fatalf("this 'again' does not have a matching 'loop'")
	}
	top := a.loops[len(a.loops)-1]
	a.loops = a.loops[:len(a.loops)-1]
	a.immediate(0x10, top.Addr)

	for {
		w := a.whiles[len(a.whiles)-1]
		a.whiles = a.whiles[:len(a.whiles)-1]
		if w.Addr == -1 {
			break
		}
		a.patchJump(w.Addr, a.here)
	}
}
