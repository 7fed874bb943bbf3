package core

// Format identifies the on-disk codec of a variant.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
)

// AllFormats lists every format the pipeline understands, in declaration
// order. Buckets enable a non-empty subset of this set.
var AllFormats = []Format{FormatPNG, FormatJPEG, FormatGIF, FormatWebP}

// Ext returns the canonical path extension for f, per the variant path ABI.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatGIF:
		return "gif"
	case FormatWebP:
		return "webp"
	default:
		return string(f)
	}
}

// Valid reports whether f is one of the four supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatGIF, FormatWebP:
		return true
	default:
		return false
	}
}

// ParseFormat parses a format name (case-insensitive, "jpg" accepted as an
// alias for "jpeg") into a Format.
func ParseFormat(s string) (Format, bool) {
	switch normalize(s) {
	case "png":
		return FormatPNG, true
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "gif":
		return FormatGIF, true
	case "webp":
		return FormatWebP, true
	default:
		return "", false
	}
}

// FormatFromExt parses a canonical path extension back into a Format.
// Unlike ParseFormat it does not accept the "jpg" alias, since the path ABI
// only ever emits "jpeg".
func FormatFromExt(ext string) (Format, bool) {
	switch normalize(ext) {
	case "png":
		return FormatPNG, true
	case "jpeg":
		return FormatJPEG, true
	case "gif":
		return FormatGIF, true
	case "webp":
		return FormatWebP, true
	default:
		return "", false
	}
}

func normalize(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}
