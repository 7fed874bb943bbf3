// Package filesystem implements storage.Backend over a local directory
// tree, one file per variant path.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/storage"
)

// Backend stores variants as files under a root directory, mirroring each
// variant path's directory structure exactly.
type Backend struct {
	root string
}

// New creates a Backend rooted at dir, creating it if necessary.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem storage: mkdir %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filesystem storage: abs path %s: %w", dir, err)
	}
	return &Backend{root: abs}, nil
}

// fullPath maps a variant path to its on-disk location, rejecting any
// attempt to escape the root via "..".
func (b *Backend) fullPath(path string) (string, error) {
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("filesystem storage: illegal path %q", path)
	}
	return filepath.Join(b.root, clean), nil
}

func (b *Backend) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put", err)
	}
	full, err := b.fullPath(path)
	if err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put", err)
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put.mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put.tempfile", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put.copy", err)
	}
	if err := tmp.Close(); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put.close", err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.put.rename", err)
	}
	success = true
	return nil
}

func (b *Backend) Get(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, lerrors.Wrap(lerrors.StorageFailure, "filesystem.get", err)
	}
	full, err := b.fullPath(path)
	if err != nil {
		return nil, false, lerrors.Wrap(lerrors.StorageFailure, "filesystem.get", err)
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, lerrors.Wrap(lerrors.StorageFailure, "filesystem.get.open", err)
	}
	return f, true, nil
}

func (b *Backend) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.delete_prefix", err)
	}
	full, err := b.fullPath(prefix)
	if err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.delete_prefix", err)
	}
	if err := os.RemoveAll(full); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "filesystem.delete_prefix", err)
	}
	return nil
}

// List walks the bucket's directory and returns entries in lexicographic
// path order. page is a decimal offset into the sorted listing; "" means
// start from the beginning.
func (b *Backend) List(ctx context.Context, bucket string, filter storage.Filter, page string) (storage.Page, error) {
	if err := ctx.Err(); err != nil {
		return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "filesystem.list", err)
	}
	bucketDir, err := b.fullPath(bucket)
	if err != nil {
		return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "filesystem.list", err)
	}

	var all []storage.Entry
	err = filepath.Walk(bucketDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(filepath.Base(p), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if filter.Kind == storage.FilterByCreationDate {
			mt := info.ModTime()
			if !filter.From.IsZero() && mt.Before(filter.From) {
				return nil
			}
			if !filter.To.IsZero() && mt.After(filter.To) {
				return nil
			}
		}
		all = append(all, storage.Entry{Path: rel, Size: info.Size(), CreatedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "filesystem.list.walk", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	offset := 0
	if page != "" {
		offset, err = strconv.Atoi(page)
		if err != nil || offset < 0 {
			return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "filesystem.list.page",
				fmt.Errorf("invalid page token %q", page))
		}
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + storage.PageSize
	if end > len(all) {
		end = len(all)
	}

	out := storage.Page{Items: all[offset:end]}
	if end < len(all) {
		out.NextPage = strconv.Itoa(end)
	}
	return out, nil
}

var _ storage.Backend = (*Backend)(nil)
