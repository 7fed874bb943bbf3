package facade_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/lust-img/lust/bucket"
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/dispatcher"
	"github.com/lust-img/lust/facade"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor/registry"
	"github.com/lust-img/lust/storage"
)

// memStore is a minimal in-memory storage.Backend, mirroring the one used
// in the bucket package's own tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = b
	return nil
}

func (m *memStore) Get(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[path]
	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(b)), true, nil
}

func (m *memStore) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStore) List(ctx context.Context, bucketSlug string, filter storage.Filter, page string) (storage.Page, error) {
	return storage.Page{}, nil
}

var _ storage.Backend = (*memStore)(nil)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 1, G: 2, B: 3, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func newController(t *testing.T) *bucket.Controller {
	t.Helper()
	reg := registry.NewDefault()
	d := dispatcher.New(dispatcher.Config{Workers: 2, QueueSize: 32})
	d.Start(2)
	t.Cleanup(d.Stop)

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeAOT,
		EnabledFormats:       []core.Format{core.FormatPNG},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
	}
	return bucket.New(policy, newMemStore(), nil, d, reg, 0)
}

func TestUploadRejectsMalformedBase64(t *testing.T) {
	ctl := newController(t)
	router := facade.NewRouter(map[string]*bucket.Controller{"avatars": ctl})

	_, err := router.Upload(context.Background(), "avatars", facade.UploadRequest{Format: "png", Data: "not-valid-base64!!"})
	if !lerrors.Is(err, lerrors.InvalidImage) {
		t.Fatalf("got err %v, want InvalidImage", err)
	}
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	ctl := newController(t)
	router := facade.NewRouter(map[string]*bucket.Controller{"avatars": ctl})

	_, err := router.Upload(context.Background(), "avatars", facade.UploadRequest{Format: "bmp", Data: base64.StdEncoding.EncodeToString(testPNG(t))})
	if !lerrors.Is(err, lerrors.InvalidImage) {
		t.Fatalf("got err %v, want InvalidImage", err)
	}
}

func TestUploadRejectsUnknownBucket(t *testing.T) {
	router := facade.NewRouter(map[string]*bucket.Controller{})
	_, err := router.Upload(context.Background(), "missing", facade.UploadRequest{Format: "png", Data: "AAAA"})
	if !lerrors.Is(err, lerrors.UnknownBucket) {
		t.Fatalf("got err %v, want UnknownBucket", err)
	}
}

func TestUploadThenFetchRoundTrip(t *testing.T) {
	ctl := newController(t)
	router := facade.NewRouter(map[string]*bucket.Controller{"avatars": ctl})

	result, err := router.Upload(context.Background(), "avatars", facade.UploadRequest{
		Format: "png",
		Data:   base64.StdEncoding.EncodeToString(testPNG(t)),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	fetched, err := router.Fetch(context.Background(), "avatars", result.ImageID, facade.FetchRequest{Format: "png"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(fetched.Data) == 0 {
		t.Fatal("fetched empty data")
	}
}

func TestFetchRejectsAdminAsBucketSlug(t *testing.T) {
	router := facade.NewRouter(map[string]*bucket.Controller{})
	_, err := router.Fetch(context.Background(), "admin", uuid.New(), facade.FetchRequest{})
	if !lerrors.Is(err, lerrors.UnknownBucket) {
		t.Fatalf("got err %v, want UnknownBucket", err)
	}
}

func TestFetchRejectsPartialCustomSize(t *testing.T) {
	ctl := newController(t)
	router := facade.NewRouter(map[string]*bucket.Controller{"avatars": ctl})

	_, err := router.Fetch(context.Background(), "avatars", uuid.New(), facade.FetchRequest{Width: 10})
	if !lerrors.Is(err, lerrors.CustomSizeNotAllowed) {
		t.Fatalf("got err %v, want CustomSizeNotAllowed", err)
	}
}

func TestDeleteOfUnknownImageIsNotAnError(t *testing.T) {
	ctl := newController(t)
	router := facade.NewRouter(map[string]*bucket.Controller{"avatars": ctl})

	if err := router.Delete(context.Background(), "avatars", uuid.New()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
