package core

// EncodingMode selects the per-bucket trade-off between upload-time CPU,
// storage footprint, and fetch-time latency.
type EncodingMode string

const (
	// ModeAOT computes and persists every (preset, format) variant on
	// upload. Fetch never touches the processor.
	ModeAOT EncodingMode = "aot"
	// ModeJIT persists every preset in the bucket's base format on upload;
	// other formats are transcoded from the base on first fetch and
	// persisted for subsequent hits.
	ModeJIT EncodingMode = "jit"
	// ModeRealtime persists only the "original" preset in the bucket's base
	// format. Every other variant, including ad-hoc custom sizes, is
	// computed on demand and cached but never persisted.
	ModeRealtime EncodingMode = "realtime"
)

// Valid reports whether m is one of the three declared modes.
func (m EncodingMode) Valid() bool {
	switch m {
	case ModeAOT, ModeJIT, ModeRealtime:
		return true
	default:
		return false
	}
}

// ParseEncodingMode parses a mode name, case-insensitive.
func ParseEncodingMode(s string) (EncodingMode, bool) {
	switch normalize(s) {
	case "aot":
		return ModeAOT, true
	case "jit":
		return ModeJIT, true
	case "realtime":
		return ModeRealtime, true
	default:
		return "", false
	}
}
