// Package preprocess implements the Octo preprocessor: a recursive-descent
// driver over a stack of lexers (top = currently included file) that
// resolves `:include`, evaluates `:if`/`:unless`/`:else`/`:end` blocks,
// reorders `:segment code`/`:segment data`, expands image includes into
// sprite byte sequences, and emits one flat source buffer with embedded
// line-origin markers for the assembler to consume.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chiplet-go/octoasm/internal/diag"
	"github.com/chiplet-go/octoasm/internal/token"
)

// emitMode is the tri-state emission mode the `:if`/`:unless` stack tracks.
type emitMode int

const (
	active emitMode = iota
	inactive
	skipAll
)

var imageExtensions = map[string]bool{
	".png": true, ".gif": true, ".bmp": true, ".jpg": true, ".jpeg": true, ".tga": true,
}

// frame is one entry of the lexer stack: the lexer itself, plus the file
// path it is scanning, needed to resolve relative `:include`s and to
// render line-origin markers.
type frame struct {
	lex  *token.Lexer
	path string
}

// Preprocessor resolves one Octo source file, fully flattened, into a
// single buffer of text the assembler's lexer will re-scan from scratch.
type Preprocessor struct {
	IncludeDirs []string
	// GenerateLineInfos turns on synthetic `#@line[depth,line,file]`
	// markers whenever emitted output no longer lines up with its
	// original source line (spec.md §4.2).
	GenerateLineInfos bool

	diags *diag.Sink

	stack       []frame
	visiting    map[string]bool // cycle guard: resolved path -> on stack
	condStack   []emitMode
	definitions map[string]interface{} // :const-fed and -D-fed preprocessor symbols

	code []byte
	data []byte
	cur  *[]byte // points at &p.code or &p.data

	// codeSegs/dataSegs record flush order so dumpSegments can concatenate
	// code segments (in flush order) followed by data segments.
	codeSegs [][]byte
	dataSegs [][]byte

	lastDepth int
	lastFile  string
	lastLine  int
}

// New creates a Preprocessor. definitions seeds extra preprocessor symbols,
// the way `-D NAME[=VALUE]` definitions would; the CLI front end in main.go
// passes none.
func New(diags *diag.Sink, includeDirs []string, definitions map[string]interface{}) *Preprocessor {
	p := &Preprocessor{
		IncludeDirs: includeDirs,
		diags:       diags,
		visiting:    make(map[string]bool),
		definitions: make(map[string]interface{}),
	}
	for k, v := range definitions {
		p.definitions[k] = v
	}
	p.cur = &p.code
	return p
}

// Run resolves path (the root/entry file) and returns the flattened
// source text.
func (p *Preprocessor) Run(path string, src []byte) string {
	p.pushFile(path, src)
	p.condStack = append(p.condStack, active)

	for len(p.stack) > 0 {
		top := &p.stack[len(p.stack)-1]
		t := top.lex.NextToken(false)
		p.diags.SetPosition(t.Line, t.Column)

		if t.Kind == token.EndOfFile {
			p.popFile()
			continue
		}

		if t.Kind == token.Preprocessor {
			// the directive is consumed, but the layout before it is kept so
			// the lines around it stay apart
			if p.emitting() {
				*p.cur = append(*p.cur, t.Prefix...)
			}
			p.directive(t, top)
			continue
		}

		if p.emitting() {
			p.emitToken(top, t)
			// track `:const` so later `:if`/`:unless` can test it, even though
			// the assembler also consumes `:const` for its own constants table.
			if t.Kind == token.Directive && t.Text == ":const" {
				p.trackConst(top)
			}
		}
	}

	p.flushSegment()
	return p.dumpSegments()
}

func (p *Preprocessor) emitting() bool {
	return p.condStack[len(p.condStack)-1] == active
}

func (p *Preprocessor) pushFile(path string, src []byte) {
	lex := &token.Lexer{}
	lex.SetRange(path, src)
	p.stack = append(p.stack, frame{lex: lex, path: path})
	p.visiting[path] = true
}

func (p *Preprocessor) popFile() {
	top := p.stack[len(p.stack)-1]
	delete(p.visiting, top.path)
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.stack) > 0 {
		p.diags.Pop()
	}
}

func (p *Preprocessor) directive(t token.Token, top *frame) {
	switch t.Text {
	case ":include":
		p.doInclude(top)
	case ":segment":
		p.doSegment(top)
	case ":if":
		p.doIf(top, false)
	case ":unless":
		p.doIf(top, true)
	case ":else":
		p.doElse()
	case ":end":
		p.doEnd()
	case ":dump-options":
		top.lex.ConsumeRestOfLine()
	case ":config":
		p.doConfig(top)
	case ":asm":
		top.lex.ConsumeRestOfLine()
	default:
		p.diags.Fatalf("unrecognized preprocessor directive %q", t.Text)
	}
}

// doInclude resolves a `:include` path against the including file's
// directory, then against each configured include directory. Image files
// are delegated to expandImage; anything else pushes a new lexer frame so
// preprocessing recurses into it.
func (p *Preprocessor) doInclude(top *frame) {
	rest := top.lex.ConsumeRestOfLine()
	name := unquote(rest)

	if !p.emitting() {
		return
	}

	resolved, data, err := p.resolveInclude(top.path, name)
	if err != nil {
		p.diags.Fatalf("cannot resolve :include %q: %s", name, err)
	}

	if p.visiting[resolved] {
		p.diags.Fatalf(":include %q would recurse into a file already being processed", name)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	if imageExtensions[ext] {
		p.expandImage(resolved, data, rest)
		return
	}

	p.diags.Push(resolved, 1, 1, diag.Included)
	p.pushFile(resolved, data)
}

func (p *Preprocessor) resolveInclude(fromFile, name string) (string, []byte, error) {
	candidates := []string{filepath.Join(filepath.Dir(fromFile), name)}
	for _, dir := range p.IncludeDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	candidates = append(candidates, name)

	var lastErr error
	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err == nil {
			return c, data, nil
		}
		lastErr = err
	}
	return "", nil, lastErr
}

// doSegment flushes the current buffer to its segment list and switches
// which buffer subsequent tokens accumulate into.
func (p *Preprocessor) doSegment(top *frame) {
	name := unquote(top.lex.ConsumeRestOfLine())
	if !p.emitting() {
		return
	}
	p.flushSegment()
	switch name {
	case "code":
		p.cur = &p.code
	case "data":
		p.cur = &p.data
	default:
		p.diags.Fatalf("unknown segment %q (expected 'code' or 'data')", name)
	}
}

func (p *Preprocessor) flushSegment() {
	if p.cur == &p.code {
		if len(p.code) > 0 {
			p.codeSegs = append(p.codeSegs, p.code)
		}
		p.code = nil
	} else {
		if len(p.data) > 0 {
			p.dataSegs = append(p.dataSegs, p.data)
		}
		p.data = nil
	}
}

// dumpSegments concatenates all code segments (in flush order) followed
// by all data segments, per spec.md §4.2.
func (p *Preprocessor) dumpSegments() string {
	var buf bytes.Buffer
	for _, s := range p.codeSegs {
		buf.Write(s)
	}
	for _, s := range p.dataSegs {
		buf.Write(s)
	}
	return buf.String()
}

// doIf pushes a tri-state emission mode: Active if the surrounding frame
// is Active and the condition holds, Inactive if Active but the condition
// fails, SkipAll otherwise (spec.md §4.2).
func (p *Preprocessor) doIf(top *frame, negate bool) {
	name := strings.TrimSpace(top.lex.ConsumeRestOfLine())
	cond := p.isTrue(name)
	if negate {
		cond = !cond
	}

	switch p.condStack[len(p.condStack)-1] {
	case active:
		if cond {
			p.condStack = append(p.condStack, active)
		} else {
			p.condStack = append(p.condStack, inactive)
		}
	default:
		p.condStack = append(p.condStack, skipAll)
	}
}

func (p *Preprocessor) doElse() {
	if len(p.condStack) <= 1 {
		p.diags.Fatalf(":else without a matching :if/:unless")
	}
	top := len(p.condStack) - 1
	switch p.condStack[top] {
	case active:
		p.condStack[top] = skipAll
	case inactive:
		p.condStack[top] = active
	}
}

func (p *Preprocessor) doEnd() {
	if len(p.condStack) <= 1 {
		p.diags.Fatalf(":end without a matching :if/:unless")
	}
	p.condStack = p.condStack[:len(p.condStack)-1]
}

// isTrue evaluates the condition a `:const`-bound (or `-D`-bound) name
// represents: true when the name is bound to a non-zero number or a
// non-empty string.
func (p *Preprocessor) isTrue(name string) bool {
	v, ok := p.definitions[name]
	if !ok {
		return false
	}
	switch x := v.(type) {
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return false
	}
}

// trackConst feeds `:const NAME VALUE` into the preprocessor's own symbol
// table, mirroring what the assembler will later do with the same
// directive, so `:if`/`:unless` can see constants defined earlier in the
// same file. The name and value tokens it reads are passed through to the
// output like any other token.
func (p *Preprocessor) trackConst(top *frame) {
	nameTok := top.lex.NextToken(false)
	p.emitToken(top, nameTok)
	if nameTok.Kind != token.Identifier {
		return
	}
	valTok := top.lex.NextToken(false)
	p.emitToken(top, valTok)
	if valTok.Kind == token.Number {
		p.definitions[nameTok.Text] = valTok.Number
	} else if valTok.Kind == token.String {
		p.definitions[nameTok.Text] = valTok.Text
	}
}

func (p *Preprocessor) doConfig(top *frame) {
	nameTok := top.lex.NextToken(false)
	rest := strings.TrimSpace(top.lex.ConsumeRestOfLine())
	if nameTok.Kind == token.Identifier {
		p.definitions[nameTok.Text] = rest
	}
}

// emitToken passes a token through to the current segment buffer verbatim,
// preserving the whitespace/comment prefix exactly, and inserting a
// line-origin marker first if generateLineInfos is on and the source
// location jumped.
func (p *Preprocessor) emitToken(top *frame, t token.Token) {
	if p.GenerateLineInfos {
		depth := len(p.stack) - 1
		if depth != p.lastDepth || top.path != p.lastFile || t.Line != p.lastLine {
			fmt.Fprintf(p.cur2buf(), "#@line[%d,%d,%s]\n", depth, t.Line, top.path)
		}
		p.lastDepth = depth
		p.lastFile = top.path
		p.lastLine = t.Line
	}

	*p.cur = append(*p.cur, t.Prefix...)
	*p.cur = append(*p.cur, t.Raw...)
}

// cur2buf is a tiny shim so fmt.Fprintf can append into whichever []byte
// p.cur currently points at.
func (p *Preprocessor) cur2buf() *byteAppender {
	return &byteAppender{dst: p.cur}
}

type byteAppender struct{ dst *[]byte }

func (b *byteAppender) Write(p []byte) (int, error) {
	*b.dst = append(*b.dst, p...)
	return len(p), nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// expandImage implements §4.2.1: parse the optional `NxM no-labels debug`
// hint trailing the include path, decode the image as 8-bit greyscale, and
// emit one `:` label plus one `0bBBBBBBBB`-per-column-per-row sequence per
// sprite.
func (p *Preprocessor) expandImage(path string, data []byte, directiveTail string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		p.diags.Fatalf("cannot decode image %q: %s", path, err)
	}

	opts := strings.Fields(directiveTail)
	spriteW, spriteH := 0, 0
	noLabels := false
	for _, o := range opts {
		if o == "no-labels" {
			noLabels = true
			continue
		}
		if o == "debug" {
			continue
		}
		var w, h int
		if n, _ := fmt.Sscanf(o, "%dx%d", &w, &h); n == 2 {
			spriteW, spriteH = w, h
		}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if spriteW == 0 {
		if width == 16 && height == 16 {
			spriteW, spriteH = 16, 16
		} else {
			spriteW = 8
			rows := 1
			for rows < height {
				if height%rows == 0 && height/rows < 16 {
					break
				}
				rows++
			}
			spriteH = height / rows
		}
	}

	if width%spriteW != 0 {
		p.diags.Fatalf("image width %d is not a multiple of sprite width %d", width, spriteW)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cols := width / spriteW
	rows := height / spriteH

	var buf bytes.Buffer
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if !noLabels {
				fmt.Fprintf(&buf, "\n: %s-%d-%d\n", stem, col, row)
			}
			for y := 0; y < spriteH; y++ {
				for bx := 0; bx < spriteW; bx += 8 {
					var b byte
					for x := 0; x < 8 && bx+x < spriteW; x++ {
						px := bounds.Min.X + col*spriteW + bx + x
						py := bounds.Min.Y + row*spriteH + y
						g := grey(img.At(px, py))
						if g > 128 {
							b |= 1 << uint(7-x)
						}
					}
					fmt.Fprintf(&buf, "0b%08b\n", b)
				}
			}
		}
	}

	*p.cur = append(*p.cur, buf.Bytes()...)
}

func grey(c interface{ RGBA() (uint32, uint32, uint32, uint32) }) int {
	r, g, b, _ := c.RGBA()
	// simple average over 8-bit-scaled channels
	return int((r>>8 + g>>8 + b>>8) / 3)
}
