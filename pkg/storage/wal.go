package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// WAL is an append-only journal of applied commands, one line each.
type WAL interface {
	Append(line string) error
	Close() error
}

type NopWAL struct{}

func NewNopWAL() *NopWAL                { return &NopWAL{} }
func (w *NopWAL) Append(_ string) error { return nil }
func (w *NopWAL) Close() error          { return nil }

type FileWAL struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", path)
	}
	return &FileWAL{f: f}, nil
}

func (w *FileWAL) Append(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintln(w.f, line); err != nil {
		return errors.Wrap(err, "journal append")
	}
	return nil
}

func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "journal sync")
	}
	return w.f.Close()
}

var _ WAL = (*NopWAL)(nil)
var _ WAL = (*FileWAL)(nil)
