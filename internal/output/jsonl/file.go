// Package jsonl appends JSON documents to a file, one per line.
package jsonl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
)

// File is an append-only JSON lines file. It is safe for concurrent use.
type File[T any] struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// Open creates missing parent directories and opens path for appending.
func Open[T any](path string) (*File[T], error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create directory %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &File[T]{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the file path.
func (f *File[T]) Path() string {
	return f.path
}

// Append encodes each item on its own line. skip, when set, drops items
// before encoding.
func (f *File[T]) Append(items []T, skip func(T) bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, errors.Newf("%s is closed", f.path)
	}
	n := 0
	for _, item := range items {
		if skip != nil && skip(item) {
			continue
		}
		if err := f.enc.Encode(item); err != nil {
			return n, errors.Wrapf(err, "encode line %d", n)
		}
		n++
	}
	return n, nil
}

// Close closes the file. Closing twice is a no-op.
func (f *File[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
