// Package storage persists the raw bytes of uploaded import files and
// generated export artifacts.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when no object is stored under a key.
var ErrNotExist = errors.New("storage: object does not exist")

// Storage is the file-storage adapter used by bulk jobs.
// Keys are slash-separated relative paths such as "imports/<task>.csv".
type Storage interface {
	// Put stores the contents of r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader) error

	// Open returns a reader for the object under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any client resources.
	Close() error
}

// ImportKey is where the uploaded file for an import task is kept.
func ImportKey(taskID string) string { return "imports/" + taskID + ".csv" }

// ExportKey is where the artifact of an export task is kept.
func ExportKey(taskID string) string { return "exports/" + taskID + ".csv" }
