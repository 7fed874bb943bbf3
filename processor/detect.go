package processor

import (
	"net/http"

	"github.com/lust-img/lust/core"
)

// DetectFormat sniffs the leading bytes of data and returns the image
// format, falling back to net/http's content sniffer when the magic-byte
// checks below don't match.
func DetectFormat(data []byte) (core.Format, bool) {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return core.FormatJPEG, true
	}
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return core.FormatPNG, true
	}
	if len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F' &&
		data[3] == '8' && (data[4] == '7' || data[4] == '9') && data[5] == 'a' {
		return core.FormatGIF, true
	}
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return core.FormatWebP, true
	}

	switch http.DetectContentType(data) {
	case "image/jpeg":
		return core.FormatJPEG, true
	case "image/png":
		return core.FormatPNG, true
	case "image/gif":
		return core.FormatGIF, true
	case "image/webp":
		return core.FormatWebP, true
	}
	return "", false
}
