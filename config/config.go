// Package config loads and validates Lust's top-level configuration: the
// storage backend selection, global caps, and the per-bucket policy table
// described in the server's configuration ABI.
package config

import (
	"fmt"
	"strings"

	"github.com/lust-img/lust/core"
)

// BackendKind selects which storage.Backend implementation serves variants.
type BackendKind string

const (
	BackendFilesystem BackendKind = "filesystem"
	BackendScylla     BackendKind = "scylla"
	BackendBlobstore  BackendKind = "blobstorage"
)

// CacheConfig mirrors the cache shape nested under both the top-level
// global_cache key and each bucket's own cache override.
type CacheConfig struct {
	MaxImages   int   `mapstructure:"max_images"`
	MaxCapacity int64 `mapstructure:"max_capacity"`
}

// FilesystemConfig configures the local-disk storage backend.
type FilesystemConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// ScyllaConfig configures the Scylla/Cassandra storage backend.
type ScyllaConfig struct {
	Hosts             []string `mapstructure:"hosts"`
	Keyspace          string   `mapstructure:"keyspace"`
	Consistency       string   `mapstructure:"consistency"`
	ConnectTimeoutSec int      `mapstructure:"connect_timeout_seconds"`
	TimeoutSec        int      `mapstructure:"timeout_seconds"`
}

// BlobstoreConfig configures the S3-compatible object-storage backend.
type BlobstoreConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// BackendConfig selects exactly one of the nested backend configs, keyed by
// the parent `backend:` map's single key in the YAML ABI.
type BackendConfig struct {
	Filesystem *FilesystemConfig `mapstructure:"filesystem"`
	Scylla     *ScyllaConfig     `mapstructure:"scylla"`
	Blobstore  *BlobstoreConfig  `mapstructure:"blobstorage"`
}

// Kind reports which backend was configured.
func (b BackendConfig) Kind() (BackendKind, error) {
	set := 0
	var kind BackendKind
	if b.Filesystem != nil {
		set++
		kind = BackendFilesystem
	}
	if b.Scylla != nil {
		set++
		kind = BackendScylla
	}
	if b.Blobstore != nil {
		set++
		kind = BackendBlobstore
	}
	if set != 1 {
		return "", fmt.Errorf("config: backend must declare exactly one of filesystem/scylla/blobstorage, got %d", set)
	}
	return kind, nil
}

// WebPConfig mirrors the bucket-level webp_config block.
type WebPConfig struct {
	Quality     *float32 `mapstructure:"quality"`
	Method      uint8    `mapstructure:"method"`
	Threading   bool     `mapstructure:"threading"`
	Compression *int     `mapstructure:"compression"`
}

// FormatsConfig lists which formats a bucket serves and how it stores and
// encodes them.
type FormatsConfig struct {
	PNG                      bool       `mapstructure:"png"`
	JPEG                     bool       `mapstructure:"jpeg"`
	WebP                     bool       `mapstructure:"webp"`
	GIF                      bool       `mapstructure:"gif"`
	OriginalImageStoreFormat string     `mapstructure:"original_image_store_format"`
	JPEGQuality              uint8      `mapstructure:"jpeg_quality"`
	WebPConfig               WebPConfig `mapstructure:"webp_config"`
}

// Enabled returns the bucket's EnabledFormats in AllFormats order.
func (f FormatsConfig) Enabled() []core.Format {
	var out []core.Format
	if f.PNG {
		out = append(out, core.FormatPNG)
	}
	if f.JPEG {
		out = append(out, core.FormatJPEG)
	}
	if f.GIF {
		out = append(out, core.FormatGIF)
	}
	if f.WebP {
		out = append(out, core.FormatWebP)
	}
	return out
}

// PresetConfig mirrors one entry of a bucket's presets map.
type PresetConfig struct {
	Width  uint32 `mapstructure:"width"`
	Height uint32 `mapstructure:"height"`
	Filter string `mapstructure:"filter"`
}

// BucketConfig mirrors one entry of the top-level buckets map.
type BucketConfig struct {
	Mode                  string                  `mapstructure:"mode"`
	Formats               FormatsConfig           `mapstructure:"formats"`
	DefaultServingFormat   string                 `mapstructure:"default_serving_format"`
	DefaultServingPreset   string                 `mapstructure:"default_serving_preset"`
	Presets               map[string]PresetConfig `mapstructure:"presets"`
	Cache                 *CacheConfig            `mapstructure:"cache"`
	MaxUploadSizeKB       int64                   `mapstructure:"max_upload_size"`
	MaxConcurrency        int                     `mapstructure:"max_concurrency"`
	MaxCustomDimension    int                     `mapstructure:"max_custom_dimension"`
}

// Config is the top-level configuration document, matching the server's
// stable YAML/JSON configuration ABI.
type Config struct {
	GlobalCache      *CacheConfig            `mapstructure:"global_cache"`
	MaxUploadSizeKB  int64                   `mapstructure:"max_upload_size"`
	MaxConcurrency   int                     `mapstructure:"max_concurrency"`
	BaseServingPath  string                  `mapstructure:"base_serving_path"`
	Backend          BackendConfig           `mapstructure:"backend"`
	Buckets          map[string]BucketConfig `mapstructure:"buckets"`
	Log              LogConfig               `mapstructure:"log"`
}

// LogConfig mirrors the ambient logging block.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Pretty      bool   `mapstructure:"pretty"`
	ServiceName string `mapstructure:"service_name"`
}

// Validate checks the document for the structural invariants the server
// depends on: the admin slug is reserved, every bucket names a valid mode,
// and every referenced format is one of the four supported codecs.
func Validate(c Config) error {
	if _, err := c.Backend.Kind(); err != nil {
		return err
	}
	if len(c.Buckets) == 0 {
		return fmt.Errorf("config: at least one bucket must be declared")
	}
	for slug, b := range c.Buckets {
		if !core.ValidSlug(slug) {
			return fmt.Errorf("config: bucket slug %q is not a valid slug", slug)
		}
		if strings.EqualFold(slug, "admin") {
			return fmt.Errorf("config: bucket slug \"admin\" is reserved")
		}
		if _, ok := core.ParseEncodingMode(b.Mode); !ok {
			return fmt.Errorf("config: bucket %q has unknown mode %q", slug, b.Mode)
		}
		if b.DefaultServingFormat != "" {
			if _, ok := core.ParseFormat(b.DefaultServingFormat); !ok {
				return fmt.Errorf("config: bucket %q has unknown default_serving_format %q", slug, b.DefaultServingFormat)
			}
		}
		if b.Formats.OriginalImageStoreFormat != "" {
			if _, ok := core.ParseFormat(b.Formats.OriginalImageStoreFormat); !ok {
				return fmt.Errorf("config: bucket %q has unknown original_image_store_format %q", slug, b.Formats.OriginalImageStoreFormat)
			}
		}
		for name, p := range b.Presets {
			if !core.ValidSlug(name) {
				return fmt.Errorf("config: bucket %q preset name %q is invalid", slug, name)
			}
			if p.Filter != "" {
				if _, ok := core.ParseFilter(p.Filter); !ok {
					return fmt.Errorf("config: bucket %q preset %q has unknown filter %q", slug, name, p.Filter)
				}
			}
		}
	}
	return nil
}
