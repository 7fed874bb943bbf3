// Package storage defines the capability contract shared by every blob
// store Lust can sit in front of. Concrete implementations live in the
// filesystem, s3, and scylla subpackages.
package storage

import (
	"context"
	"io"
	"time"
)

// PageSize is the fixed number of entries returned per List page.
const PageSize = 50

// FilterKind selects how List restricts the entries it returns.
type FilterKind string

const (
	FilterAll              FilterKind = "all"
	FilterByCreationDate   FilterKind = "by_creation_date"
)

// Filter restricts a List call. From/To are only meaningful when Kind is
// FilterByCreationDate.
type Filter struct {
	Kind FilterKind
	From time.Time
	To   time.Time
}

// Entry describes one stored variant as returned by List.
type Entry struct {
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Page is one page of List results. NextPage is an opaque continuation
// token; an empty NextPage means there are no further pages. The filesystem
// backend encodes a decimal offset into it, S3 passes its own continuation
// token through, and Scylla encodes its native paging state.
type Page struct {
	Items    []Entry
	NextPage string
}

// Backend is the storage capability contract. All four operations are
// idempotent where semantically possible. Implementations must be safe for
// concurrent use; the core holds no locks across calls into a Backend.
type Backend interface {
	// Put stores size bytes read from r at path. Overwrites are permitted.
	Put(ctx context.Context, path string, r io.Reader, size int64) error
	// Get retrieves the blob at path. Returns a nil ReadCloser and ok=false
	// when the path does not exist (not an error).
	Get(ctx context.Context, path string) (rc io.ReadCloser, ok bool, err error)
	// DeletePrefix removes every key under prefix. Deleting a prefix with no
	// matching keys is a no-op, not an error.
	DeletePrefix(ctx context.Context, prefix string) error
	// List returns one page (at most PageSize entries) of paths under
	// bucket, restricted by filter.
	List(ctx context.Context, bucket string, filter Filter, page string) (Page, error)
}
