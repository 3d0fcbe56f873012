// Package dialect holds the small, closed set of CHIP-8 family variants
// this toolchain knows the shape of: their default load address and their
// default quirk settings. It is consulted by the CLI's `assemble -dialect`
// flag for a default start address and by the disassembler's dialect
// guesser for dialect names; it never executes a
// single opcode (spec.md §1 excludes emulation as a non-goal).
//
// Ground truth for the variant list and their defaults is
// chip8variants.hpp's Variant enum and quirk flags, compressed down to
// the axes spec.md §6.2/§6.4 actually names (start address plus the six
// boolean quirks) rather than porting the original's full bitset-keyed
// opcode-support matrix.
package dialect

// Quirks mirrors the six boolean flags of spec.md §6.4.
type Quirks struct {
	Shift     bool
	LoadStore bool
	Jump      bool
	Logic     bool
	Clip      bool
	VBlank    bool
}

// Dialect is one named CHIP-8 family member's defaults.
type Dialect struct {
	Name         string
	StartAddress int
	Quirks       Quirks

	// CHIP8XColor marks the handful of variants (CHIP-8X and its TPD
	// cousin) whose 5xy1 opcode is the 1802-era "octal BCD add of two
	// 4-bit color registers" rather than the SUPER-CHIP ordering compare
	// spec.md §9's open question asks about. Disassemble does not consult
	// this flag: it renders every 5xy1 the same way, whatever the dialect.
	CHIP8XColor bool
}

// Names spec.md §6.2 gives explicitly.
const (
	CHIP8        = "chip-8"
	CHIP8X       = "chip-8x"
	CHIP8XTPD    = "chip-8x-tpd"
	HiResCHIP8   = "hi-res-chip-8"
	CHIP48       = "chip-48"
	SCHIP10      = "schip-1.0"
	SCHIP11      = "schip-1.1"
	XOCHIP       = "xo-chip"
)

// Table is the full, fixed set of dialects this toolchain recognizes,
// keyed by Name.
var Table = map[string]Dialect{
	CHIP8: {
		Name: CHIP8, StartAddress: 0x200,
	},
	CHIP8X: {
		Name: CHIP8X, StartAddress: 0x300, CHIP8XColor: true,
	},
	CHIP8XTPD: {
		Name: CHIP8XTPD, StartAddress: 0x260, CHIP8XColor: true,
	},
	HiResCHIP8: {
		Name: HiResCHIP8, StartAddress: 0x244,
	},
	CHIP48: {
		Name: CHIP48, StartAddress: 0x200,
		Quirks: Quirks{Shift: true, Jump: true},
	},
	SCHIP10: {
		Name: SCHIP10, StartAddress: 0x200,
		Quirks: Quirks{Shift: true, Jump: true, Clip: true},
	},
	SCHIP11: {
		Name: SCHIP11, StartAddress: 0x200,
		Quirks: Quirks{Shift: true, Jump: true, LoadStore: true, Clip: true},
	},
	XOCHIP: {
		Name: XOCHIP, StartAddress: 0x200,
		Quirks: Quirks{Logic: true},
	},
}

// StartAddressFor returns the default load address for a named dialect,
// falling back to the classic CHIP-8 default (0x200) for an unknown name
// rather than failing - spec.md never makes an unrecognized dialect name
// a hard error, only a loss of the more specific default.
func StartAddressFor(name string) int {
	if d, ok := Table[name]; ok {
		return d.StartAddress
	}
	return 0x200
}
