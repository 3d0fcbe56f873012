// Package config decodes the cartridge/runtime options document
// (spec.md §6.4): tick rate, ROM size ceiling, screen rotation, font
// style, touch input mode, the six ARGB palette colors and the six
// quirk flags a player or emulator cares about. Neither this package nor
// anything that calls it ever interprets a quirk flag - running a ROM is
// a non-goal (spec.md §1); Options is pure data that rides inside a
// cartridge or a standalone JSON file.
package config

import "encoding/json"

// Valid values for MaxSize, per spec.md §6.4.
const (
	MaxSizeCHIP8    = 3232
	MaxSizeCHIP8Alt = 3583
	MaxSizeSCHIP    = 3584
	MaxSizeXOCHIP   = 65024
)

var validMaxSizes = map[int]bool{
	MaxSizeCHIP8: true, MaxSizeCHIP8Alt: true, MaxSizeSCHIP: true, MaxSizeXOCHIP: true,
}

var validRotations = map[int]bool{0: true, 90: true, 180: true, 270: true}

var validFontStyles = map[string]bool{
	"octo": true, "vip": true, "dream6800": true, "eti660": true, "schip": true, "fish": true,
}

var validTouchModes = map[string]bool{
	"none": true, "swipe": true, "seg16": true, "seg16fill": true, "gamepad": true, "vip": true,
}

// Defaults mirror Octo's own: a middling tick rate, the classic CHIP-8
// size ceiling, no rotation, the octo font, and every quirk off.
func Defaults() Options {
	return Options{
		TickRate:        20,
		MaxSize:         MaxSizeCHIP8,
		ScreenRotation:  0,
		FontStyle:       "octo",
		TouchInputMode:  "none",
		BackgroundColor: "#996600",
		FillColor:       "#FFCC00",
		FillColor2:      "#FF6600",
		BlendColor:      "#662200",
		BuzzColor:       "#FFAA00",
		QuietColor:      "#000000",
	}
}

// Options is the full set of cartridge/runtime options recognized by
// spec.md §6.4. Every field is exported so encoding/json can decode into
// it directly; unknown JSON fields are ignored, and a malformed value in
// a field this package validates is replaced by its default rather than
// rejected (spec.md §6.4: "malformed values fall back to defaults").
type Options struct {
	TickRate       int    `json:"tickrate"`
	MaxSize        int    `json:"maxSize"`
	ScreenRotation int    `json:"screenRotation"`
	FontStyle      string `json:"fontStyle"`
	TouchInputMode string `json:"touchInputMode"`

	BackgroundColor string `json:"backgroundColor"`
	FillColor       string `json:"fillColor"`
	FillColor2      string `json:"fillColor2"`
	BlendColor      string `json:"blendColor"`
	BuzzColor       string `json:"buzzColor"`
	QuietColor      string `json:"quietColor"`

	ShiftQuirks     bool `json:"shiftQuirks"`
	LoadStoreQuirks bool `json:"loadStoreQuirks"`
	JumpQuirks      bool `json:"jumpQuirks"`
	LogicQuirks     bool `json:"logicQuirks"`
	ClipQuirks      bool `json:"clipQuirks"`
	VBlankQuirks    bool `json:"vBlankQuirks"`
}

// Decode parses a JSON options document, starting from Defaults() so any
// field the document omits keeps its default, then sanitizing every
// enumerated field that came back out of range.
func Decode(data []byte) (Options, error) {
	opts := Defaults()
	if err := json.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	opts.sanitize()
	return opts, nil
}

func (o *Options) sanitize() {
	def := Defaults()
	if !validMaxSizes[o.MaxSize] {
		o.MaxSize = def.MaxSize
	}
	if !validRotations[o.ScreenRotation] {
		o.ScreenRotation = def.ScreenRotation
	}
	if !validFontStyles[o.FontStyle] {
		o.FontStyle = def.FontStyle
	}
	if !validTouchModes[o.TouchInputMode] {
		o.TouchInputMode = def.TouchInputMode
	}
	if o.TickRate <= 0 {
		o.TickRate = def.TickRate
	}
}

// Encode serializes Options back to its JSON form.
func Encode(opts Options) ([]byte, error) {
	return json.Marshal(opts)
}
