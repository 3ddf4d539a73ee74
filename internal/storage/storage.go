// Package storage saves and serves uploaded clothing images.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when the named object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat namespace of image objects addressed by filename.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}
