package assemble

import (
	"github.com/chiplet-go/octoasm/internal/symtab"
	"github.com/chiplet-go/octoasm/internal/token"
)

// captureBody reads a macro/string-mode body verbatim between balanced
// braces, without interpreting a single token of it - bodies are spliced
// back into the token stream at expansion time, never re-lexed.
func (a *Assembler) captureBody(desc, name string) []token.Token {
	a.expect("{")
	depth := 1
	var body []token.Token
	for {
		t := a.stream.Peek()
		if t.Kind == token.EndOfFile {
			a.diags.Fatalf("expected '}' for definition of %s '%s'", desc, name)
		}
		if t.Kind == token.LCurly {
			depth++
		}
		if t.Kind == token.RCurly {
			depth--
			if depth == 0 {
				break
			}
		}
		body = append(body, a.stream.Next())
	}
	a.expect("}")
	return body
}

func (a *Assembler) doMacroDefine() {
	name := a.identifierName("macro")
	if _, ok := a.table.Macros[name]; ok {
		a.diags.Fatalf("the name '%s' has already been defined", name)
	}
	var params []string
	for !a.peekIs("{") {
		params = append(params, a.identifierName("macro argument"))
	}
	body := a.captureBody("macro", name)
	a.table.Macros[name] = &symtab.Macro{Params: params, Body: body}
}

func (a *Assembler) doStringmodeDefine() {
	name := a.identifierName("stringmode")
	alphabet := a.nameOrString("a string-mode alphabet")
	body := a.captureBody("string mode", name)

	sm, ok := a.table.StringModes[name]
	if !ok {
		sm = &symtab.StringMode{}
		a.table.StringModes[name] = sm
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if !sm.Define(c, byte(i), body) {
			a.diags.Fatalf("string mode '%s' is already defined for the character '%c'", name, c)
		}
	}
}

func numTok(n int) token.Token {
	return token.Token{Kind: token.Number, Number: float64(n)}
}

// expandMacro binds CALLS plus one token per declared parameter, then
// splices the macro body - with every occurrence of a bound name
// substituted by its bound token - onto the front of the stream.
func (a *Assembler) expandMacro(name string, m *symtab.Macro) {
	bindings := map[string]token.Token{"CALLS": numTok(m.CallCount)}
	m.CallCount++

	for _, p := range m.Params {
		if a.stream.Peek().Kind == token.EndOfFile {
			a.diags.Fatalf("not enough arguments for expansion of macro '%s'", name)
		}
		bindings[p] = a.stream.Next()
	}

	spliced := make([]token.Token, len(m.Body))
	for i, bt := range m.Body {
		if sub, ok := bindings[bt.Text]; ok {
			spliced[i] = sub
		} else {
			spliced[i] = bt
		}
	}
	a.stream.splice(spliced)
}

// expandStringMode reads one string-typed argument and, for every
// character, splices that character's own macro body with CALLS, CHAR,
// INDEX and VALUE bound - CALLS counts characters processed across every
// invocation of this string-mode ever, not just this one.
func (a *Assembler) expandStringMode(name string, sm *symtab.StringMode) {
	text := a.nameOrString("a string-mode argument")

	var spliced []token.Token
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !sm.HasChar(c) {
			a.diags.Fatalf("string mode '%s' is not defined for the character '%c'", name, c)
		}
		macro := sm.CharToMacro[c]
		bindings := map[string]token.Token{
			"CALLS": numTok(sm.CallCount),
			"CHAR":  numTok(int(c)),
			"INDEX": numTok(i),
			"VALUE": numTok(int(sm.CharToValue[c])),
		}
		sm.CallCount++

		for _, bt := range macro.Body {
			if sub, ok := bindings[bt.Text]; ok {
				spliced = append(spliced, sub)
			} else {
				spliced = append(spliced, bt)
			}
		}
	}
	a.stream.splice(spliced)
}
