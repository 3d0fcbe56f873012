// Package roundtrip implements the batch round-trip harness spec.md §8
// calls out as a testable property: compile a source file to a ROM,
// disassemble that ROM back to text, recompile the disassembly, and
// report whether the second ROM matches the first byte-for-byte. Grounded
// on chiplet.cpp's `--test-roms` sweep (walk a directory, compile and
// recompile every file, report divergence) and on google-kati's use of
// github.com/sergi/go-diff/diffmatchpatch for presenting a readable diff
// of the two ROMs' hex dumps when they disagree.
package roundtrip

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/chiplet-go/octoasm/internal/assemble"
	"github.com/chiplet-go/octoasm/internal/disasm"
)

// Report is the outcome of round-tripping one source file.
type Report struct {
	File     string
	Ok       bool
	Message  string
	DiffText string // when Ok is false: the regenerated source if recompiling it failed, or a hex diff of the two ROMs if they diverge
}

// Check compiles src, disassembles the result, recompiles the
// disassembly, and compares the two ROMs. It never touches the
// filesystem itself - callers own reading the source and, in Batch's
// case, walking a directory.
func Check(file, src string) Report {
	first, fatal := assemble.Assemble(file, src, assemble.Options{})
	if fatal != nil {
		return Report{File: file, Ok: false, Message: fmt.Sprintf("initial compile failed: %s", fatal.Error())}
	}

	regenerated := reconstructSource(first.ROM, first.StartAddress)

	second, fatal := assemble.Assemble(file+" (round-trip)", regenerated, assemble.Options{StartAddress: first.StartAddress})
	if fatal != nil {
		return Report{
			File: file, Ok: false,
			Message:  fmt.Sprintf("recompiling the disassembly failed: %s", fatal.Error()),
			DiffText: regenerated,
		}
	}

	if string(first.ROM) == string(second.ROM) {
		return Report{File: file, Ok: true, Message: "round-trip matched byte-for-byte"}
	}

	return Report{
		File: file, Ok: false,
		Message:  "recompiled ROM diverges from the original",
		DiffText: byteDiff(first.ROM, second.ROM),
	}
}

// reconstructSource turns a compiled ROM back into Octo-ish source whose
// recompilation can reproduce the same bytes, re-inserting the `: main`
// label disasm.Disassemble has no notion of (label names don't survive
// compilation; only addresses do).
//
// Assemble always lays down a two-byte placeholder at file offset 0 before
// compiling anything (assembler.go's run()). When `main` resolves at
// startAddress (a leading `:org`) or right after the placeholder (main is
// the first statement), the placeholder is reclaimed and main's own code
// starts at file offset 0; otherwise it is patched into a jump to wherever
// `main` resolved. Recompiling the
// disassembly needs to land in the same branch the original compile did,
// so the trampoline jump is recognized and its target relabeled `main`
// rather than replayed as a literal instruction - replaying it would make
// the recompile reserve and patch a second, redundant trampoline.
func reconstructSource(rom []byte, startAddr int) string {
	listing := disasm.Disassemble(rom, startAddr)

	if len(rom) >= 2 && rom[0]&0xF0 == 0x10 {
		target := startAddr + (int(rom[0]&0x0F)<<8 | int(rom[1]))
		if target > startAddr {
			var buf strings.Builder
			wrote := false
			for _, ins := range listing {
				if ins.Addr == startAddr {
					continue // the trampoline itself: recompiling regenerates it
				}
				if !wrote && ins.Addr == target {
					buf.WriteString(": main\n")
					wrote = true
				}
				buf.WriteString(ins.Text)
				buf.WriteByte('\n')
			}
			if wrote {
				return buf.String()
			}
			// target didn't land on a decoded instruction boundary (e.g. it
			// points into the middle of a 4-byte `i := long`) - fall through
			// to the flat rendering below rather than emit a mislabeled main.
		}
	}

	// No recognizable trampoline: main's own code begins at startAddress
	// (main was the first statement, or followed `:org <startAddress>`), so
	// the whole ROM is main, verbatim.
	var buf strings.Builder
	fmt.Fprintf(&buf, ":org 0x%X\n: main\n", startAddr)
	for _, ins := range listing {
		buf.WriteString(ins.Text)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// byteDiff renders a human-readable diff between two ROMs' hex dumps
// using go-diff, the same library google-kati relies on for its own
// content-comparison diagnostics.
func byteDiff(a, b []byte) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(hexDump(a), hexDump(b), false)
	return dmp.DiffPrettyText(diffs)
}

func hexDump(b []byte) string {
	var out strings.Builder
	for i, c := range b {
		if i > 0 && i%16 == 0 {
			out.WriteByte('\n')
		}
		fmt.Fprintf(&out, "%02x ", c)
	}
	return out.String()
}

// Batch runs Check over every (name, source) pair supplied and returns
// one Report per file, sorted by file name. Discovering which files to
// check (a directory walk, a glob, an explicit list) is the caller's
// job - this package only knows how to check one already-read source
// buffer against itself.
func Batch(sources map[string]string) []Report {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sortStrings(names)

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		reports = append(reports, Check(name, sources[name]))
	}
	return reports
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
