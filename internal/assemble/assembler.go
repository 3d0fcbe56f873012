// Package assemble implements the Assembler (spec component A): it drives
// a token stream through the statement grammar, resolves forward-declared
// labels, expands macros and string-modes, and emits a ROM byte vector plus
// the debug map that rides alongside it.
//
// The error model follows the teacher's: nothing returns a Go error from
// deep in the call graph. A fatal problem panics through diag.Sink.Fatalf;
// Assemble is the only place that recovers, turning the panic into a
// diag.Result. This mirrors the source's single "is_error" flag checked at
// the top of every method, translated into Go's native unwinding primitive
// instead of manually threading a bool through every call.
package assemble

import (
	"github.com/chiplet-go/octoasm/internal/diag"
	"github.com/chiplet-go/octoasm/internal/symtab"
	"github.com/chiplet-go/octoasm/internal/token"
)

// DefaultStartAddress is where CHIP-8 programs have always begun: the
// first 512 bytes of RAM were the interpreter's own working space on the
// original COSMAC VIP.
const DefaultStartAddress = 0x200

// RAMMask is the largest address this toolchain ever lets a program touch
// (16 MiB - 1), shared by :org masking and the ROM growth ceiling.
const RAMMask = romRung3 - 1

// Options configures one compile.
type Options struct {
	// StartAddress is where `here` begins and where the reserved jump to
	// `main` is finally patched. Zero means DefaultStartAddress.
	StartAddress int
}

// FlowFrame is one entry of the branches/loops/whiles control-flow stacks.
// Kind is purely descriptive (used in "unmatched X" diagnostics); only
// Addr is load-bearing.
type FlowFrame struct {
	Addr         int
	Line, Column int
	Kind         string
}

// Assembler holds everything one compile needs: the symbol table, the ROM
// under construction, the token stream, and the three control-flow stacks.
// Per spec.md §5 an Assembler is never shared between concurrent compiles.
type Assembler struct {
	diags *diag.Sink
	table *symtab.Table
	rom   *rom
	opts  Options

	here         int
	startAddress int
	hasMain      bool

	branches []FlowFrame
	loops    []FlowFrame
	whiles   []FlowFrame

	stream *tokenStream

	currentLine, currentColumn int
}

func newAssembler(diags *diag.Sink, opts Options) *Assembler {
	start := opts.StartAddress
	if start == 0 {
		start = DefaultStartAddress
	}
	return &Assembler{
		diags:        diags,
		table:        symtab.New(),
		rom:          newROM(),
		opts:         opts,
		startAddress: start,
		here:         start,
		hasMain:      true,
	}
}

// Assemble compiles one already-preprocessed source buffer. It never
// returns a Go error: a fatal diagnostic comes back as the second return
// value, with result == nil. Non-fatal diagnostics (Info/Warning) ride
// inside the successful Result.
func Assemble(file string, src string, opts Options) (result *Result, fatal *diag.Result) {
	diags := diag.New(file)
	a := newAssembler(diags, opts)

	lex := &token.Lexer{Mode: token.ModeOcto}
	lex.SetRange(file, []byte(src))
	a.stream = &tokenStream{lex: lex}

	defer func() {
		if r := recover(); r != nil {
			if a.currentLine > 0 {
				diags.SetPosition(a.currentLine, a.currentColumn)
			}
			captured := diags.Capture(r)
			fatal = &captured
			result = nil
		}
	}()

	result = a.run()
	return result, nil
}

func (a *Assembler) run() *Result {
	a.instruction(0x00, 0x00) // reserve the jump-to-main slot

	for {
		t := a.stream.Peek()
		if t.Kind == token.EndOfFile {
			break
		}
		a.currentLine, a.currentColumn = t.Line, t.Column
		a.compileStatement()
	}

	a.rom.trim(a.startAddress)

	if a.hasMain {
		c, ok := a.table.Constants["main"]
		if !ok {
			a.diags.Fatalf("this program is missing a 'main' label")
		}
		a.patchJump(a.startAddress, int(c.Value))
	}

	if name, proto, ok := a.firstUnresolvedProto(); ok {
		a.currentLine, a.currentColumn = proto.FirstLine, proto.FirstColumn
		a.diags.Fatalf("undefined forward reference: %s", name)
	}
	if len(a.branches) > 0 {
		top := a.branches[len(a.branches)-1]
		a.currentLine, a.currentColumn = top.Line, top.Column
		a.diags.Fatalf("this '%s' does not have a matching 'end'", top.Kind)
	}
	if len(a.loops) > 0 {
		top := a.loops[len(a.loops)-1]
		a.currentLine, a.currentColumn = top.Line, top.Column
		a.diags.Fatalf("this 'loop' does not have a matching 'again'")
	}

	return a.buildResult()
}

// firstUnresolvedProto picks a deterministic representative (earliest
// source position) out of whatever forward references never resolved, so
// the "undefined forward reference" diagnostic doesn't depend on Go's
// randomized map iteration order.
func (a *Assembler) firstUnresolvedProto() (string, *symtab.Prototype, bool) {
	var bestName string
	var best *symtab.Prototype
	for name, p := range a.table.Protos {
		if best == nil || p.FirstLine < best.FirstLine ||
			(p.FirstLine == best.FirstLine && p.FirstColumn < best.FirstColumn) {
			bestName, best = name, p
		}
	}
	return bestName, best, best != nil
}

// --- evalexpr.Context ---

func (a *Assembler) Constant(name string) (float64, bool) {
	if c, ok := a.table.Constants[name]; ok {
		return c.Value, true
	}
	return 0, false
}

func (a *Assembler) Register(name string) (int, bool) {
	if idx, ok := a.table.Aliases[name]; ok {
		return idx, true
	}
	if idx, ok := registerIndex(name); ok {
		return idx, true
	}
	return 0, false
}

func (a *Assembler) Here() int { return a.here }

func (a *Assembler) PeekByte(addr int) byte {
	if addr < 0 || addr >= len(a.rom.bytes) {
		return 0
	}
	return a.rom.bytes[addr]
}

// --- emission ---

func (a *Assembler) append(b byte) {
	addr := a.here
	if addr >= romRung3 {
		a.diags.Fatalf("supported ROM space is full (16 MiB)")
	}
	a.rom.ensure(addr + 1)
	if a.rom.used[addr] {
		a.diags.Fatalf("data overlap: address 0x%04X has already been defined", addr)
	}
	a.rom.bytes[addr] = b
	a.rom.used[addr] = true
	a.rom.lineOf[addr] = int32(a.currentLine)
	a.here++
	if a.here > a.rom.length {
		a.rom.length = a.here
	}
}

func (a *Assembler) instruction(hi, lo byte) {
	a.append(hi)
	a.append(lo)
}

func (a *Assembler) immediate(op byte, nnn int) {
	a.instruction(op|byte((nnn>>8)&0xF), byte(nnn&0xFF))
}

// patchJump overwrites a previously reserved two-byte slot with an
// unconditional jump to dest. The slot's bytes are already marked used, so
// this bypasses append's overlap check entirely - exactly the teacher's
// jump() helper.
func (a *Assembler) patchJump(addr, dest int) {
	a.rom.ensure(addr + 2)
	a.rom.bytes[addr] = 0x10 | byte((dest>>8)&0xF)
	a.rom.bytes[addr+1] = byte(dest & 0xFF)
	a.rom.used[addr] = true
	a.rom.used[addr+1] = true
}

func registerIndex(name string) (int, bool) {
	if len(name) != 2 {
		return 0, false
	}
	if name[0] != 'v' && name[0] != 'V' {
		return 0, false
	}
	c := name[1]
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// --- token stream ---

// tokenStream is the splice-capable queue the assembler reads statements
// from. Macro and string-mode expansion works by pushing a fresh run of
// tokens onto the front of queue - the body is never re-lexed, only
// replayed - so Next and Peek must check queue before pulling a fresh
// token from the underlying lexer.
type tokenStream struct {
	lex   *token.Lexer
	queue []token.Token
}

func (s *tokenStream) Next() token.Token {
	if len(s.queue) > 0 {
		t := s.queue[0]
		s.queue = s.queue[1:]
		return t
	}
	return s.lex.NextToken(false)
}

func (s *tokenStream) Peek() token.Token {
	if len(s.queue) == 0 {
		s.queue = append(s.queue, s.lex.NextToken(false))
	}
	return s.queue[0]
}

// peekAt looks n tokens ahead without consuming anything, pulling as many
// tokens from the lexer as needed to fill the queue.
func (s *tokenStream) peekAt(n int) token.Token {
	for len(s.queue) <= n {
		s.queue = append(s.queue, s.lex.NextToken(false))
	}
	return s.queue[n]
}

// splice pushes tokens onto the front of the queue, ahead of whatever is
// already pending - this is how macro and string-mode bodies get replayed.
func (s *tokenStream) splice(tokens []token.Token) {
	merged := make([]token.Token, 0, len(tokens)+len(s.queue))
	merged = append(merged, tokens...)
	merged = append(merged, s.queue...)
	s.queue = merged
}
