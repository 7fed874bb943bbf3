package processor

import (
	"context"
	"io"
	"sync"

	"github.com/lust-img/lust/core"
)

// Decoder turns raw encoded bytes into a Raster. Implementations live in
// the sibling codec packages (pngcodec, jpegcodec, gifcodec, webpcodec).
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*Raster, error)
	CanDecode(format core.Format) bool
}

// Encoder serialises a Raster to bytes in a target format.
type Encoder interface {
	Encode(ctx context.Context, raster *Raster, params EncodeParams) ([]byte, error)
	CanEncode(format core.Format) bool
}

// Registry maps a Format to its Decoder/Encoder. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[core.Format]Decoder
	encoders map[core.Format]Encoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[core.Format]Decoder),
		encoders: make(map[core.Format]Encoder),
	}
}

func (r *Registry) RegisterDecoder(f core.Format, d Decoder) {
	r.mu.Lock()
	r.decoders[f] = d
	r.mu.Unlock()
}

func (r *Registry) RegisterEncoder(f core.Format, e Encoder) {
	r.mu.Lock()
	r.encoders[f] = e
	r.mu.Unlock()
}

func (r *Registry) DecoderFor(f core.Format) (Decoder, bool) {
	r.mu.RLock()
	d, ok := r.decoders[f]
	r.mu.RUnlock()
	return d, ok
}

func (r *Registry) EncoderFor(f core.Format) (Encoder, bool) {
	r.mu.RLock()
	e, ok := r.encoders[f]
	r.mu.RUnlock()
	return e, ok
}
