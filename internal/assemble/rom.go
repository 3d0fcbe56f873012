package assemble

// rom is the growable byte vector the assembler emits into. It grows in
// fixed rungs rather than doubling forever, matching the ceilings the
// format itself recognizes (the 16 MiB MegaChip/XO-CHIP address space is
// the largest anything in this toolchain ever addresses).
type rom struct {
	bytes  []byte
	used   []bool
	lineOf []int32 // source line that produced each byte, -1 if unset
	length int     // one past the highest byte ever written
}

const (
	romRung0 = 1 << 16       // 64 KiB - CHIP-8/SUPER-CHIP programs never leave this
	romRung1 = 1 << 20       // 1 MiB
	romRung2 = 8 << 20       // 8 MiB
	romRung3 = 16 << 20      // 16 MiB - MegaChip/XO-CHIP ceiling, RAM_MASK+1
)

func newROM() *rom {
	r := &rom{
		bytes:  make([]byte, romRung0),
		used:   make([]bool, romRung0),
		lineOf: make([]int32, romRung0),
	}
	for i := range r.lineOf {
		r.lineOf[i] = -1
	}
	return r
}

// ensure grows the backing arrays, rung by rung, until addr is in range.
func (r *rom) ensure(addr int) {
	if addr < len(r.bytes) || len(r.bytes) >= romRung3 {
		return
	}
	next := len(r.bytes)
	switch {
	case next < romRung1:
		next = romRung1
	case next < romRung2:
		next = romRung2
	default:
		next = romRung3
	}
	grown := make([]byte, next)
	copy(grown, r.bytes)
	r.bytes = grown

	usedGrown := make([]bool, next)
	copy(usedGrown, r.used)
	r.used = usedGrown

	lineGrown := make([]int32, next)
	copy(lineGrown, r.lineOf)
	for i := len(r.lineOf); i < next; i++ {
		lineGrown[i] = -1
	}
	r.lineOf = lineGrown
	r.ensure(addr)
}

// trim drops trailing bytes nobody ever wrote, down to floor.
func (r *rom) trim(floor int) {
	for r.length > floor && !r.used[r.length-1] {
		r.length--
	}
}

// bytesUpTo returns the emitted program, [0, length).
func (r *rom) bytesUpTo(length int) []byte {
	return r.bytes[:length]
}
