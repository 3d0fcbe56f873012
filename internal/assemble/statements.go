package assemble

import "github.com/chiplet-go/octoasm/internal/token"

// compileStatement recognizes and emits exactly one statement. It is the
// single dispatch point every other file's helpers funnel into; the order
// of the checks matches the grammar's own left-to-right greedy matching -
// a register-prefixed statement is tried first, then every reserved
// directive/keyword in turn, and only once none of those match does a
// bare token get tried as a number, a macro/string-mode invocation, or an
// implicit call to a label.
func (a *Assembler) compileStatement() {
	if a.peekIsRegister() {
		a.compileRegisterStatement()
		return
	}

	switch {
	case a.match(":"):
		a.resolveLabel(0)
	case a.match(":next"):
		a.resolveLabel(1)
	case a.match(":unpack"):
		a.doUnpack()
	case a.match(":breakpoint"):
		a.doBreakpoint()
	case a.match(":monitor"):
		a.doMonitor()
	case a.match(":assert"):
		a.doAssert()
	case a.match(":proto"):
		a.stream.Next() // deprecated, argument discarded
	case a.match(":alias"):
		a.doAlias()
	case a.match(":byte"):
		a.doByte()
	case a.match(":pointer"), a.match(":pointer16"):
		a.doPointer16()
	case a.match(":pointer24"):
		a.doPointer24()
	case a.match(":org"):
		a.doOrg()
	case a.match(":call"):
		a.doCall()
	case a.match(":const"):
		a.doConst()
	case a.match(":calc"):
		a.doCalc()
	case a.match(":macro"):
		a.doMacroDefine()
	case a.match(":stringmode"):
		a.doStringmodeDefine()
	case a.match(";"), a.match("return"):
		a.instruction(0x00, 0xEE)
	case a.match("clear"):
		a.instruction(0x00, 0xE0)
	case a.match("bcd"):
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x33)
	case a.match("delay"):
		a.expect(":=")
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x15)
	case a.match("buzzer"):
		a.expect(":=")
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x18)
	case a.match("pitch"):
		a.expect(":=")
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x3A)
	case a.match("jump0"):
		a.immediate(0xB0, a.value12bit())
	case a.match("jump"):
		a.immediate(0x10, a.value12bit())
	case a.match("native"):
		a.immediate(0x00, a.value12bit())
	case a.match("audio"):
		a.instruction(0xF0, 0x02)
	case a.match("scroll-down"):
		a.instruction(0x00, 0xC0|byte(a.value4bit()))
	case a.match("scroll-up"):
		a.instruction(0x00, 0xD0|byte(a.value4bit()))
	case a.match("scroll-right"):
		a.instruction(0x00, 0xFB)
	case a.match("scroll-left"):
		a.instruction(0x00, 0xFC)
	case a.match("exit"):
		a.instruction(0x00, 0xFD)
	case a.match("lores"):
		a.instruction(0x00, 0xFE)
	case a.match("hires"):
		a.instruction(0x00, 0xFF)
	case a.match("sprite"):
		x := a.registerOrAlias()
		y := a.registerOrAlias()
		a.instruction(0xD0|byte(x), byte(y<<4)|byte(a.spriteNibble()))
	case a.match("plane"):
		n := a.value4bit()
		if n > 15 {
			a.diags.Fatalf("the plane bitmask must be [0,15], was %d", n)
		}
		a.instruction(0xF0|byte(n), 0x01)
	case a.match("saveflags"):
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x75)
	case a.match("loadflags"):
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x85)
	case a.match("save"):
		r := a.registerOrAlias()
		if a.match("-") {
			a.instruction(0x50|byte(r), byte(a.registerOrAlias()<<4)|0x02)
		} else {
			a.instruction(0xF0|byte(r), 0x55)
		}
	case a.match("load"):
		r := a.registerOrAlias()
		if a.match("-") {
			a.instruction(0x50|byte(r), byte(a.registerOrAlias()<<4)|0x03)
		} else {
			a.instruction(0xF0|byte(r), 0x65)
		}
	case a.match("i"):
		a.compileIStatement()
	case a.match("if"):
		a.doIf()
	case a.match("else"):
		a.doElse()
	case a.match("end"):
		a.doEnd()
	case a.match("loop"):
		a.doLoop()
	case a.match("while"):
		a.doWhile()
	case a.match("again"):
		a.doAgain()
	default:
		a.compileFallback()
	}
}

func (a *Assembler) compileRegisterStatement() {
	r := a.registerOrAlias()
	switch {
	case a.match(":="):
		switch {
		case a.peekIsRegister():
			a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4))
		case a.match("random"):
			a.instruction(0xC0|byte(r), byte(a.value8bit()))
		case a.match("key"):
			a.instruction(0xF0|byte(r), 0x0A)
		case a.match("delay"):
			a.instruction(0xF0|byte(r), 0x07)
		default:
			a.instruction(0x60|byte(r), byte(a.value8bit()))
		}
	case a.match("+="):
		if a.peekIsRegister() {
			a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x4)
		} else {
			a.instruction(0x70|byte(r), byte(a.value8bit()))
		}
	case a.match("-="):
		if a.peekIsRegister() {
			a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x5)
		} else {
			a.instruction(0x70|byte(r), byte(1+^a.value8bit()))
		}
	case a.match("|="):
		a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x1)
	case a.match("&="):
		a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x2)
	case a.match("^="):
		a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x3)
	case a.match("=-"):
		a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x7)
	case a.match(">>="):
		a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0x6)
	case a.match("<<="):
		a.instruction(0x80|byte(r), byte(a.registerOrAlias()<<4)|0xE)
	default:
		t := a.stream.Next()
		a.diags.Fatalf("unrecognized operator %q", displayToken(t))
	}
}

func (a *Assembler) compileIStatement() {
	switch {
	case a.match(":="):
		switch {
		case a.match("long"):
			v := a.value16bit(true, 2)
			a.instruction(0xF0, 0x00)
			a.instruction(byte(v>>8), byte(v))
		case a.match("hex"):
			a.instruction(0xF0|byte(a.registerOrAlias()), 0x29)
		case a.match("bighex"):
			a.instruction(0xF0|byte(a.registerOrAlias()), 0x30)
		default:
			a.immediate(0xA0, a.value12bit())
		}
	case a.match("+="):
		a.instruction(0xF0|byte(a.registerOrAlias()), 0x1E)
	default:
		t := a.stream.Next()
		a.diags.Fatalf("%q is not an operator that can target the i register", displayToken(t))
	}
}

// spriteNibble reads the draw height: either a plain 4-bit literal, or
// the `N x M` sprite-size hint's height (the large-sprite shorthand), in
// which case a height of 16 encodes as nibble 0 (SUPER-CHIP's 16x16 mode).
func (a *Assembler) spriteNibble() int {
	if a.stream.Peek().Kind == token.SpriteSize {
		t := a.stream.Next()
		if t.SpriteH == 16 {
			return 0
		}
		return t.SpriteH
	}
	return a.value4bit()
}

// compileFallback handles every statement that isn't introduced by a
// register, a directive, or a reserved keyword: a bare byte literal, a
// macro or string-mode invocation, or - when none of those match - an
// implicit `jump`-less call to a label used as a statement by itself.
func (a *Assembler) compileFallback() {
	t := a.stream.Peek()

	if t.Kind == token.Number {
		a.stream.Next()
		n := int(t.Number)
		if n < -128 || n > 255 {
			a.diags.Fatalf("literal value '%d' does not fit in a byte - must be in range [-128,255]", n)
		}
		a.append(byte(n))
		return
	}

	name := t.Text
	if m, ok := a.table.Macros[name]; ok {
		a.stream.Next()
		a.expandMacro(name, m)
		return
	}
	if sm, ok := a.table.StringModes[name]; ok {
		a.stream.Next()
		a.expandStringMode(name, sm)
		return
	}

	a.immediate(0x20, a.value12bit())
}
