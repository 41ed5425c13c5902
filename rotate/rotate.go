// Package rotate provides a size-bounded rotating file writer. The active
// file rotates into numbered backup slots, slot 1 always holding the most
// recent backup, and at most a fixed number of slots are retained.
package rotate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// A Writer is an append-mode file whose size is bounded by rotation. When
// a write would grow the file to maxBytes or beyond, the file is closed,
// existing backups shift one slot up (path.1 → path.2, …, the oldest past
// backupCount is discarded), the file is renamed to path.1, and a fresh
// file is opened.
//
// Rotation requires both maxBytes and backupCount to be positive, the
// contract of the rotating file handlers that configuration documents
// describe; with either at zero the file grows without bound. An empty
// active file never rotates, and a single write larger than maxBytes
// still lands intact: rotation happens before a write, never in the
// middle of one.
//
// A Writer is safe for concurrent use and implements zapcore.WriteSyncer.
type Writer struct {
	path    string
	max     int64
	backups int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// New opens the file at path for appending, creating parent directories
// as needed. maxBytes and backupCount bound the file as described on
// [Writer].
func New(path string, maxBytes int64, backupCount int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	w := &Writer{path: path, max: maxBytes, backups: backupCount}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) open() error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.f = f
	w.size = info.Size()
	return nil
}

// Write appends p to the file, rotating first when the write would reach
// the size bound.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, os.ErrClosed
	}
	if w.shouldRotate(int64(len(p))) {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *Writer) shouldRotate(n int64) bool {
	return w.max > 0 && w.backups > 0 && w.size > 0 && w.size+n >= w.max
}

// Rotate forces a rotation regardless of size, for example from a signal
// handler. It is a no-op when backupCount is zero.
func (w *Writer) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return os.ErrClosed
	}
	if w.backups <= 0 {
		return nil
	}
	return w.rotate()
}

// rotate shifts backup slots and reopens a fresh file. Callers hold w.mu.
func (w *Writer) rotate() error {
	if err := w.f.Close(); err != nil {
		w.f = nil
		return err
	}
	w.f = nil

	oldest := w.slot(w.backups)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			return w.reopen(err)
		}
	}
	for i := w.backups - 1; i >= 1; i-- {
		src := w.slot(i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, w.slot(i+1)); err != nil {
			return w.reopen(err)
		}
	}
	if err := os.Rename(w.path, w.slot(1)); err != nil {
		return w.reopen(err)
	}
	return w.open()
}

func (w *Writer) slot(i int) string {
	return w.path + "." + strconv.Itoa(i)
}

// reopen restores an append handle after a failed shift so that later
// writes still land somewhere.
func (w *Writer) reopen(cause error) error {
	if err := w.open(); err != nil {
		return fmt.Errorf("%w (reopen failed: %v)", cause, err)
	}
	return cause
}

// Sync flushes the file to stable storage.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return os.ErrClosed
	}
	return w.f.Sync()
}

// Close syncs and closes the file. A closed Writer cannot be reused.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Sync()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f = nil
	return err
}
