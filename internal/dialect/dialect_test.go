package dialect

import "testing"

func TestStartAddressForKnownDialects(t *testing.T) {
	cases := map[string]int{
		CHIP8:      0x200,
		CHIP8X:     0x300,
		CHIP8XTPD:  0x260,
		HiResCHIP8: 0x244,
		CHIP48:     0x200,
		SCHIP10:    0x200,
		SCHIP11:    0x200,
		XOCHIP:     0x200,
	}
	for name, want := range cases {
		if got := StartAddressFor(name); got != want {
			t.Errorf("%s: expected start address 0x%X, got 0x%X", name, want, got)
		}
	}
}

func TestStartAddressForUnknownDialectFallsBackToClassic(t *testing.T) {
	if got := StartAddressFor("not-a-real-dialect"); got != 0x200 {
		t.Fatalf("expected unknown dialect to fall back to 0x200, got 0x%X", got)
	}
}

func TestCHIP8XColorFlagOnlyOnColorVariants(t *testing.T) {
	for name, d := range Table {
		want := name == CHIP8X || name == CHIP8XTPD
		if d.CHIP8XColor != want {
			t.Errorf("%s: expected CHIP8XColor=%v, got %v", name, want, d.CHIP8XColor)
		}
	}
}

func TestQuirkDefaultsMatchSpecAxes(t *testing.T) {
	schip11 := Table[SCHIP11]
	if !schip11.Quirks.Shift || !schip11.Quirks.Jump || !schip11.Quirks.LoadStore || !schip11.Quirks.Clip {
		t.Fatalf("expected schip-1.1 to default shift/jump/load-store/clip quirks on, got %+v", schip11.Quirks)
	}
	if schip11.Quirks.Logic || schip11.Quirks.VBlank {
		t.Fatalf("expected schip-1.1 to leave logic/vblank quirks off, got %+v", schip11.Quirks)
	}

	xochip := Table[XOCHIP]
	if !xochip.Quirks.Logic {
		t.Fatalf("expected xo-chip to default the logic quirk on")
	}
}
