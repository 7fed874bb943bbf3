package core

// OriginalPreset is the implicit preset name meaning "no resize". It is
// always present in a bucket's effective preset set even though it need not
// be declared in configuration.
const OriginalPreset = "original"

// Preset is a named resize target.
type Preset struct {
	Name   string
	Width  uint32
	Height uint32
	Filter Filter
}

// IsOriginal reports whether p is the implicit "original" preset.
func (p Preset) IsOriginal() bool {
	return p.Name == OriginalPreset
}

// Original returns the implicit preset value. Its Width/Height are zero,
// signalling to the processor that no resize should occur.
func Original() Preset {
	return Preset{Name: OriginalPreset}
}
