package bucket_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/lust-img/lust/storage"
)

// memStore is a minimal in-memory storage.Backend used to exercise bucket
// pipelines without touching the filesystem.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	puts []string // path of every Put call, in order, including overwrites
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = b
	m.puts = append(m.puts, path)
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

func (m *memStore) List(ctx context.Context, bucket string, filter storage.Filter, page string) (storage.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	prefix := bucket + "/"
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			paths = append(paths, k)
		}
	}
	sort.Strings(paths)
	items := make([]storage.Entry, 0, len(paths))
	for _, p := range paths {
		items = append(items, storage.Entry{Path: p, Size: int64(len(m.data[p]))})
	}
	return storage.Page{Items: items}, nil
}

func (m *memStore) keyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// putCount returns how many times Put was called for path, including
// overwrites.
func (m *memStore) putCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.puts {
		if p == path {
			n++
		}
	}
	return n
}

var _ storage.Backend = (*memStore)(nil)
