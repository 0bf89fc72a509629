// Package storage provides a uniform get/put/list interface over a
// local filesystem and S3-compatible object storage, matching the one
// storage abstraction both the SCP and SCU pipelines depend on.
package storage

import (
	"context"
	"strings"
)

// Backend is the single storage interface implemented by both the
// filesystem and object-store backends.
type Backend interface {
	// Get returns the bytes stored under key. Returns errors.ErrNotFound
	// if absent, errors.ErrBackendUnavailable on transport failure.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes data under key, overwriting any existing value and
	// creating any missing parent path. Writes are observable by
	// subsequent Get calls within the same process.
	Put(ctx context.Context, key string, data []byte) error

	// List returns a lazy sequence of keys under prefix. The returned
	// channel is closed when enumeration completes or ctx is cancelled;
	// a non-nil Err on an Entry terminates the sequence.
	List(ctx context.Context, prefix string) <-chan Entry
}

// Entry is one result from List.
type Entry struct {
	Key string
	Err error
}

// InstanceKey builds the canonical storage key for a stored instance:
// {study_uid}/{series_uid}/{sop_instance_uid}.dcm, with forward slashes
// regardless of host OS.
func InstanceKey(studyUID, seriesUID, sopInstanceUID string) string {
	return strings.Join([]string{studyUID, seriesUID, sopInstanceUID + ".dcm"}, "/")
}
