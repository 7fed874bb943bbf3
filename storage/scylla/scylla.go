// Package scylla implements storage.Backend on top of ScyllaDB (or
// Cassandra) via gocql, storing each variant as a row rather than a blob on
// a filesystem or object store.
package scylla

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/gocql/gocql"

	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/storage"
)

// Config configures the Scylla backend's cluster connection.
type Config struct {
	Hosts          []string
	Keyspace       string
	Consistency    string
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

// Backend stores variants in a single table keyed by (bucket, path), with
// bytes stored inline in a blob column. Suited to deployments that already
// run Scylla for other state and want one less storage dependency.
//
// Expected schema:
//
//	CREATE TABLE variants (
//	    bucket     text,
//	    path       text,
//	    body       blob,
//	    size       bigint,
//	    created_at timestamp,
//	    PRIMARY KEY (bucket, created_at, path)
//	) WITH CLUSTERING ORDER BY (created_at ASC);
type Backend struct {
	session *gocql.Session
}

// New opens a session against the configured cluster.
func New(cfg Config) (*Backend, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}

	switch cfg.Consistency {
	case "LOCAL_ONE":
		cluster.Consistency = gocql.LocalOne
	case "LOCAL_QUORUM":
		cluster.Consistency = gocql.LocalQuorum
	case "ONE":
		cluster.Consistency = gocql.One
	case "QUORUM":
		cluster.Consistency = gocql.Quorum
	default:
		cluster.Consistency = gocql.LocalOne
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla storage: create session: %w", err)
	}
	return &Backend{session: session}, nil
}

// Close releases the underlying session.
func (b *Backend) Close() {
	b.session.Close()
}

func splitPath(path string) (bucket string, err error) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i], nil
		}
	}
	return "", fmt.Errorf("scylla storage: path %q has no bucket component", path)
}

func (b *Backend) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	bucket, err := splitPath(path)
	if err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "scylla.put", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "scylla.put.read", err)
	}

	q := `INSERT INTO variants (bucket, path, body, size, created_at) VALUES (?, ?, ?, ?, ?)`
	if err := b.session.Query(q, bucket, path, body, int64(len(body)), time.Now().UTC()).
		WithContext(ctx).Exec(); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "scylla.put.exec", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	bucket, err := splitPath(path)
	if err != nil {
		return nil, false, lerrors.Wrap(lerrors.StorageFailure, "scylla.get", err)
	}

	var body []byte
	q := `SELECT body FROM variants WHERE bucket = ? AND path = ? ALLOW FILTERING`
	if err := b.session.Query(q, bucket, path).WithContext(ctx).Scan(&body); err != nil {
		if err == gocql.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, lerrors.Wrap(lerrors.StorageFailure, "scylla.get.scan", err)
	}
	return io.NopCloser(bytes.NewReader(body)), true, nil
}

func (b *Backend) DeletePrefix(ctx context.Context, prefix string) error {
	bucket, err := splitPath(prefix)
	if err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "scylla.delete_prefix", err)
	}

	iter := b.session.Query(`SELECT path FROM variants WHERE bucket = ?`, bucket).WithContext(ctx).Iter()
	var path string
	var toDelete []string
	for iter.Scan(&path) {
		if hasPrefix(path, prefix) {
			toDelete = append(toDelete, path)
		}
	}
	if err := iter.Close(); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "scylla.delete_prefix.list", err)
	}

	for _, p := range toDelete {
		if err := b.session.Query(`DELETE FROM variants WHERE bucket = ? AND path = ?`, bucket, p).
			WithContext(ctx).Exec(); err != nil {
			return lerrors.Wrap(lerrors.StorageFailure, "scylla.delete_prefix.delete", err)
		}
	}
	return nil
}

// List orders by created_at, Scylla's natural clustering order, and encodes
// gocql's native paging state as a base64 token.
func (b *Backend) List(ctx context.Context, bucket string, filter storage.Filter, page string) (storage.Page, error) {
	var pageState []byte
	if page != "" {
		decoded, err := base64.StdEncoding.DecodeString(page)
		if err != nil {
			return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "scylla.list.page",
				fmt.Errorf("invalid page token: %w", err))
		}
		pageState = decoded
	}

	var q string
	var args []interface{}
	switch filter.Kind {
	case storage.FilterByCreationDate:
		q = `SELECT path, size, created_at FROM variants WHERE bucket = ? AND created_at >= ? AND created_at <= ?`
		args = []interface{}{bucket, filter.From, filter.To}
	default:
		q = `SELECT path, size, created_at FROM variants WHERE bucket = ?`
		args = []interface{}{bucket}
	}

	query := b.session.Query(q, args...).WithContext(ctx).PageSize(storage.PageSize)
	if pageState != nil {
		query = query.PageState(pageState)
	}
	iter := query.Iter()

	result := storage.Page{}
	var path string
	var size int64
	var createdAt time.Time
	for iter.Scan(&path, &size, &createdAt) {
		result.Items = append(result.Items, storage.Entry{Path: path, Size: size, CreatedAt: createdAt})
	}
	if next := iter.PageState(); len(next) > 0 {
		result.NextPage = base64.StdEncoding.EncodeToString(next)
	}
	if err := iter.Close(); err != nil {
		return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "scylla.list.iter", err)
	}
	return result, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

var _ storage.Backend = (*Backend)(nil)
