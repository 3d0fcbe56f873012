package config

import (
	"encoding/json"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.TickRate != 20 || d.MaxSize != MaxSizeCHIP8 || d.FontStyle != "octo" || d.TouchInputMode != "none" {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestDecodeOverridesOnlyGivenFields(t *testing.T) {
	opts, err := Decode([]byte(`{"tickrate": 30, "fontStyle": "schip"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.TickRate != 30 || opts.FontStyle != "schip" {
		t.Fatalf("expected given fields to override, got %+v", opts)
	}
	if opts.MaxSize != MaxSizeCHIP8 || opts.TouchInputMode != "none" {
		t.Fatalf("expected omitted fields to keep their defaults, got %+v", opts)
	}
}

func TestDecodeSanitizesOutOfRangeValues(t *testing.T) {
	opts, err := Decode([]byte(`{
		"maxSize": 999999,
		"screenRotation": 45,
		"fontStyle": "comic-sans",
		"touchInputMode": "telepathy",
		"tickrate": -5
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := Defaults()
	if opts.MaxSize != def.MaxSize {
		t.Errorf("expected invalid MaxSize to fall back to default, got %d", opts.MaxSize)
	}
	if opts.ScreenRotation != def.ScreenRotation {
		t.Errorf("expected invalid ScreenRotation to fall back to default, got %d", opts.ScreenRotation)
	}
	if opts.FontStyle != def.FontStyle {
		t.Errorf("expected invalid FontStyle to fall back to default, got %q", opts.FontStyle)
	}
	if opts.TouchInputMode != def.TouchInputMode {
		t.Errorf("expected invalid TouchInputMode to fall back to default, got %q", opts.TouchInputMode)
	}
	if opts.TickRate != def.TickRate {
		t.Errorf("expected non-positive TickRate to fall back to default, got %d", opts.TickRate)
	}
}

func TestDecodeAcceptsEveryValidMaxSize(t *testing.T) {
	for _, size := range []int{MaxSizeCHIP8, MaxSizeCHIP8Alt, MaxSizeSCHIP, MaxSizeXOCHIP} {
		doc, _ := json.Marshal(map[string]int{"maxSize": size})
		opts, err := Decode(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.MaxSize != size {
			t.Errorf("expected MaxSize %d to be accepted as-is, got %d", size, opts.MaxSize)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := Defaults()
	want.LogicQuirks = true
	want.ClipQuirks = true
	want.TickRate = 1000

	encoded, err := Encode(want)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got != want {
		t.Fatalf("expected round-trip to reproduce the options exactly, got %+v want %+v", got, want)
	}
}

func TestDecodeMalformedJSONFails(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected an error decoding malformed JSON")
	}
}
