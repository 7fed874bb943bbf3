package bucket

import (
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/processor"
)

// DefaultMaxCustomDimension bounds ad-hoc width/height fetches in Realtime
// mode when a bucket does not configure its own limit.
const DefaultMaxCustomDimension = 4096

// Policy is a bucket's fixed, process-lifetime configuration: mode, enabled
// formats, presets, upload limits, and concurrency cap.
type Policy struct {
	Slug string
	Mode core.EncodingMode

	EnabledFormats      []core.Format
	OriginalStoreFormat core.Format

	DefaultServingFormat core.Format
	// DefaultServingPreset is "" when unset, which falls back to "original".
	DefaultServingPreset string

	Presets map[string]core.Preset

	// EncoderParams optionally overrides the default encode parameters for
	// a given format (e.g. JPEG quality, WebP quality/method).
	EncoderParams map[core.Format]processor.EncodeParams

	MaxUploadSize      int64 // bytes; 0 means unlimited
	MaxConcurrency     int   // 0 means unlimited
	MaxCustomDimension int   // Realtime only; 0 means DefaultMaxCustomDimension
}

// FormatEnabled reports whether f is one of the bucket's enabled formats.
func (p Policy) FormatEnabled(f core.Format) bool {
	for _, e := range p.EnabledFormats {
		if e == f {
			return true
		}
	}
	return false
}

// ResolvePreset returns the named preset, or the implicit "original" preset
// when name is "".
func (p Policy) ResolvePreset(name string) (core.Preset, bool) {
	if name == "" {
		name = core.OriginalPreset
	}
	if name == core.OriginalPreset {
		return core.Original(), true
	}
	preset, ok := p.Presets[name]
	return preset, ok
}

// ServingPresetName returns the preset name to use when a fetch omits one.
func (p Policy) ServingPresetName() string {
	if p.DefaultServingPreset == "" {
		return core.OriginalPreset
	}
	return p.DefaultServingPreset
}

// maxCustomDimension returns the effective Realtime custom-size cap.
func (p Policy) maxCustomDimension() int {
	if p.MaxCustomDimension > 0 {
		return p.MaxCustomDimension
	}
	return DefaultMaxCustomDimension
}

// AllPresetsIncludingOriginal returns every declared preset plus the
// implicit "original" preset, used by AOT's upload fan-out.
func (p Policy) AllPresetsIncludingOriginal() map[string]core.Preset {
	out := make(map[string]core.Preset, len(p.Presets)+1)
	out[core.OriginalPreset] = core.Original()
	for name, preset := range p.Presets {
		out[name] = preset
	}
	return out
}
