// Package evalexpr implements the compile-time expression evaluator that
// runs over `{ ... }` blocks: `:calc`, `:const` initializers, and every
// value position that accepts a calculated expression. All arithmetic is
// float64 until the final cast to the instruction's required width - that
// matches the source's own untyped-number model and keeps operators like
// `/` and transcendental functions well defined.
package evalexpr

import (
	"math"
	"strings"

	"github.com/chiplet-go/octoasm/internal/token"
)

// TokenSource is the minimal token-stream contract the evaluator needs
// from the assembler: peek without consuming, and consume-and-return.
type TokenSource interface {
	Peek() token.Token
	Next() token.Token
}

// Context resolves the names and side-channels an expression can touch:
// constants, HERE, and ROM-in-progress peeks.
type Context interface {
	// Constant looks up a named constant's value.
	Constant(name string) (float64, bool)
	// Register reports whether name is a V-register or alias, and its index.
	Register(name string) (int, bool)
	// Here returns the current emission address.
	Here() int
	// PeekByte reads one byte from the ROM built so far, or 0 if addr is
	// out of range / not yet written.
	PeekByte(addr int) byte
}

var unaryOps = []string{
	"-", "~", "!", "sin", "cos", "tan", "exp", "log", "abs", "sqrt",
	"sign", "ceil", "floor", "strlen", "@",
}

var binaryOps = []string{
	"<<=", ">>=", "==", "!=", "<=", ">=", "<<", ">>",
	"+", "-", "*", "/", "%", "&", "|", "^", "<", ">", "pow", "min", "max",
}

// Evaluate parses and computes one compile-time expression, starting
// immediately after the opening '{' has already been consumed by the
// caller (the assembler is the one that recognizes `{` as "enter the
// evaluator"). It consumes the closing '}'.
//
// A forward reference - a name that is neither a known constant nor a
// register - is always a fatal error here; spec.md §4.4 requires `:calc`
// and constant expressions to resolve immediately.
func Evaluate(ts TokenSource, ctx Context) float64 {
	v := evalExpr(ts, ctx)
	closing := ts.Next()
	if closing.Kind != token.RCurly {
		panic("expected '}' to close expression")
	}
	return v
}

// evalExpr implements the "no precedence climbing" contract from spec.md
// §4.4/§9: parse one value, then repeatedly look for a binary operator and
// fold left-to-right. Nothing about operator precedence is consulted.
func evalExpr(ts TokenSource, ctx Context) float64 {
	left := calcValue(ts, ctx)

	for {
		op, ok := matchBinaryOp(ts)
		if !ok {
			return left
		}
		right := calcValue(ts, ctx)
		left = applyBinary(op, left, right)
	}
}

// calcValue tries each unary operator in turn (in the fixed order spec.md
// documents as part of the language contract), falling through to a plain
// terminal when none match.
func calcValue(ts TokenSource, ctx Context) float64 {
	if op, ok := matchUnaryOp(ts); ok {
		operand := calcValue(ts, ctx)
		return applyUnary(op, operand, ctx)
	}
	return calcTerminal(ts, ctx)
}

func matchUnaryOp(ts TokenSource) (string, bool) {
	t := ts.Peek()
	text := t.Text
	if t.Kind == token.Identifier {
		text = strings.ToLower(t.Text)
	}
	for _, op := range unaryOps {
		if text == op {
			ts.Next()
			return op, true
		}
	}
	return "", false
}

func matchBinaryOp(ts TokenSource) (string, bool) {
	t := ts.Peek()
	text := t.Text
	if t.Kind == token.Identifier {
		text = strings.ToLower(t.Text)
	}
	for _, op := range binaryOps {
		if text == op {
			ts.Next()
			return op, true
		}
	}
	return "", false
}

func calcTerminal(ts TokenSource, ctx Context) float64 {
	t := ts.Next()

	switch t.Kind {
	case token.Number:
		return t.Number
	case token.LCurly:
		v := evalExpr(ts, ctx)
		closing := ts.Next()
		if closing.Kind != token.RCurly {
			panic("expected '}' to close nested expression")
		}
		return v
	case token.Identifier, token.Keyword:
		return resolveName(t.Text, ctx)
	}

	panic("expected a value in compile-time expression")
}

func resolveName(name string, ctx Context) float64 {
	upper := strings.ToUpper(name)
	switch upper {
	case "HERE":
		return float64(ctx.Here())
	case "PI":
		return math.Pi
	case "E":
		return math.E
	}

	if idx, ok := ctx.Register(name); ok {
		return float64(idx)
	}
	if v, ok := ctx.Constant(name); ok {
		return v
	}

	panic("forward reference '" + name + "' is not allowed in a compile-time expression")
}

func applyUnary(op string, v float64, ctx Context) float64 {
	switch op {
	case "-":
		return -v
	case "~":
		return float64(^int64(v))
	case "!":
		if v == 0 {
			return 1
		}
		return 0
	case "sin":
		return math.Sin(v)
	case "cos":
		return math.Cos(v)
	case "tan":
		return math.Tan(v)
	case "exp":
		return math.Exp(v)
	case "log":
		return math.Log(v)
	case "abs":
		return math.Abs(v)
	case "sqrt":
		return math.Sqrt(v)
	case "sign":
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	case "ceil":
		return math.Ceil(v)
	case "floor":
		return math.Floor(v)
	case "strlen":
		return v
	case "@":
		return float64(ctx.PeekByte(int(v)))
	}
	panic("unknown unary operator " + op)
}

func applyBinary(op string, a, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		return math.Mod(a, b)
	case "&":
		return float64(int64(a) & int64(b))
	case "|":
		return float64(int64(a) | int64(b))
	case "^":
		return float64(int64(a) ^ int64(b))
	case "<<":
		return float64(int64(a) << uint(int64(b)))
	case ">>":
		return float64(int64(a) >> uint(int64(b)))
	case "<":
		return boolF(a < b)
	case "<=":
		return boolF(a <= b)
	case ">":
		return boolF(a > b)
	case ">=":
		return boolF(a >= b)
	case "==":
		return boolF(a == b)
	case "!=":
		return boolF(a != b)
	case "pow":
		return math.Pow(a, b)
	case "min":
		return math.Min(a, b)
	case "max":
		return math.Max(a, b)
	}
	panic("unknown binary operator " + op)
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
