package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// slugPattern constrains bucket slugs and preset names to the ABI's allowed
// character set.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidSlug reports whether s is a legal bucket slug or preset name.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// VariantKey uniquely names one stored or computable variant.
type VariantKey struct {
	Bucket  string
	ImageID uuid.UUID
	Preset  string
	Format  Format
}

// Path renders k as its canonical storage path:
//
//	{bucket_slug}/{image_id_hex_no_dashes}/{preset_name}.{format_ext}
//
// This string is bit-exact at the storage interface; filesystem and S3
// backends use it directly as the object key.
func (k VariantKey) Path() string {
	return fmt.Sprintf("%s/%s/%s.%s", k.Bucket, hexID(k.ImageID), k.Preset, k.Format.Ext())
}

// ImagePrefix returns the storage prefix shared by every variant of one
// image, used by delete_prefix and cache invalidation.
func ImagePrefix(bucket string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", bucket, hexID(id))
}

// Prefix returns the image-scoped prefix for k's own (bucket, image_id).
func (k VariantKey) Prefix() string {
	return ImagePrefix(k.Bucket, k.ImageID)
}

// ParsePath is the inverse of Path: decode(encode(k)) == k for every valid
// VariantKey.
func ParsePath(path string) (VariantKey, error) {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) != 3 {
		return VariantKey{}, fmt.Errorf("lust: malformed variant path %q", path)
	}
	bucket, idHex, rest := parts[0], parts[1], parts[2]

	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return VariantKey{}, fmt.Errorf("lust: malformed variant path %q", path)
	}
	preset, ext := rest[:dot], rest[dot+1:]

	format, ok := FormatFromExt(ext)
	if !ok {
		return VariantKey{}, fmt.Errorf("lust: unknown format extension %q in path %q", ext, path)
	}

	id, err := uuid.Parse(expandHexID(idHex))
	if err != nil {
		return VariantKey{}, fmt.Errorf("lust: malformed image id %q in path %q: %w", idHex, path, err)
	}

	return VariantKey{Bucket: bucket, ImageID: id, Preset: preset, Format: format}, nil
}

func hexID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

// expandHexID reinserts the dashes a 32-char hex UUID needs to parse with
// uuid.Parse. Non-32-char input is returned unchanged so uuid.Parse can
// produce a sensible parse error.
func expandHexID(h string) string {
	if len(h) != 32 {
		return h
	}
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}
