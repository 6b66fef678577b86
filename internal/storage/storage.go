// Package storage keeps analyzed meal images. The backend is picked by
// config, with an S3 compatible store or nothing at all.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/viper"
)

// ErrDisabled is returned by the none store for every operation.
var ErrDisabled = errors.New("image storage is disabled")

// ErrNotFound is returned when a key doesn't exist in the store.
var ErrNotFound = errors.New("image not found")

// ImageStore is what the analysis pipeline needs from a blob backend.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, keys ...string) error
}

// New builds the store configured under storage.type.
func New() (ImageStore, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		return NewS3Store()
	default:
		return noneStore{}, nil
	}
}

type noneStore struct{}

func (noneStore) Put(context.Context, string, io.Reader, int64, string) error {
	return ErrDisabled
}

func (noneStore) Get(context.Context, string) (io.ReadCloser, string, error) {
	return nil, "", ErrDisabled
}

func (noneStore) Delete(context.Context, ...string) error {
	return ErrDisabled
}
