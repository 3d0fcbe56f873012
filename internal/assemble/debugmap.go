package assemble

import (
	"crypto/sha1"
	"fmt"
	"sort"

	"github.com/chiplet-go/octoasm/internal/diag"
	"github.com/chiplet-go/octoasm/internal/symtab"
)

// DebugMap answers the four queries an external debugger needs, derived
// once at the end of a successful compile (spec.md §4.7). It never
// changes after Assemble returns - there is nothing left to mutate.
type DebugMap struct {
	lineOf      []int32 // lineOf[addr] by absolute VM address, length == StartAddress+len(ROM); -1 (read back as 0xFFFFFFFF) for unmapped
	breakpoints map[int]string
	monitors    map[string]symtab.Monitor

	// addrRangeByLine is built lazily on first AddrForLine call.
	addrRangeByLine map[int][2]int
}

// LineForAddr returns the source line that produced address a, or
// 0xFFFFFFFF if nothing was ever emitted there.
func (d *DebugMap) LineForAddr(addr int) uint32 {
	if addr < 0 || addr >= len(d.lineOf) || d.lineOf[addr] < 0 {
		return 0xFFFFFFFF
	}
	return uint32(d.lineOf[addr])
}

// AddrForLine returns the smallest and largest address produced from
// source line l. ok is false if line l emitted nothing.
func (d *DebugMap) AddrForLine(line int) (first, last int, ok bool) {
	if d.addrRangeByLine == nil {
		d.addrRangeByLine = make(map[int][2]int)
		for addr, l := range d.lineOf {
			if l < 0 {
				continue
			}
			r, seen := d.addrRangeByLine[int(l)]
			if !seen {
				d.addrRangeByLine[int(l)] = [2]int{addr, addr}
				continue
			}
			if addr < r[0] {
				r[0] = addr
			}
			if addr > r[1] {
				r[1] = addr
			}
			d.addrRangeByLine[int(l)] = r
		}
	}
	r, ok := d.addrRangeByLine[line]
	return r[0], r[1], ok
}

// BreakpointForAddr returns the breakpoint name stored at addr, if any.
func (d *DebugMap) BreakpointForAddr(addr int) (string, bool) {
	name, ok := d.breakpoints[addr]
	return name, ok
}

// Monitor returns the `:monitor` record registered under name, if any.
func (d *DebugMap) Monitor(name string) (symtab.Monitor, bool) {
	m, ok := d.monitors[name]
	return m, ok
}

// ContentHash is a SHA-1 digest over the emitted byte range, with every
// breakpoint label mixed in as "04x:NAME" (sorted by address, so the hash
// is deterministic regardless of map iteration order) - two ROMs with
// identical bytes but different breakpoints hash differently.
func (d *DebugMap) ContentHash(rom []byte) string {
	h := sha1.New()
	h.Write(rom)

	addrs := make([]int, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)
	for _, addr := range addrs {
		fmt.Fprintf(h, "%04x:%s", addr, d.breakpoints[addr])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Result is everything a successful compile hands back: the ROM, where
// execution begins, the debug map, and any non-fatal diagnostics
// (Info/Warning) raised along the way.
type Result struct {
	ROM          []byte
	StartAddress int
	DebugMap     *DebugMap
	Diagnostics  []diag.Result
}

func (a *Assembler) buildResult() *Result {
	full := a.rom.bytesUpTo(a.rom.length)

	// Result.ROM is the file you'd actually write to a .ch8/.8x cartridge:
	// position-independent, starting at file offset 0 == VM address
	// startAddress. The debug map, by contrast, keeps indexing by the
	// absolute VM address throughout (breakpoints and monitors are already
	// keyed that way), so lineOf is NOT re-based to the trimmed ROM.
	rom := make([]byte, len(full)-a.startAddress)
	copy(rom, full[a.startAddress:])

	lineOf := make([]int32, len(full))
	copy(lineOf, a.rom.lineOf[:len(full)])

	breakpoints := make(map[int]string, len(a.table.Breakpoints))
	for addr, name := range a.table.Breakpoints {
		breakpoints[addr] = name
	}
	monitors := make(map[string]symtab.Monitor, len(a.table.Monitors))
	for name, m := range a.table.Monitors {
		monitors[name] = m
	}

	return &Result{
		ROM:          rom,
		StartAddress: a.startAddress,
		DebugMap: &DebugMap{
			lineOf:      lineOf,
			breakpoints: breakpoints,
			monitors:    monitors,
		},
		Diagnostics: a.diags.Results(),
	}
}
