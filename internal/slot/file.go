package slot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// File stores each key as <dir>/<key>.json.
// No caching: every call reads or writes the file under an exclusive flock.
type File struct {
	dir string
}

// NewFile creates a file slot rooted at dir, creating it with mode 0700.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("slot: file backend needs a directory")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("slot: create directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Path returns the file backing key.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+".json")
}

// Get implements Slot.
// Lock → Read → Unlock
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	path := f.Path(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	var data []byte
	err := withFileLock(path, os.O_RDONLY, func(file *os.File) error {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		if info.Size() == 0 {
			return ErrNotFound
		}
		data = make([]byte, info.Size())
		if _, err := file.ReadAt(data, 0); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return nil
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("slot: %s: %w", path, err)
	}
	return data, nil
}

// Put implements Slot.
// Lock → Truncate → Write → Sync → Unlock
func (f *File) Put(ctx context.Context, key string, value []byte) error {
	path := f.Path(key)
	err := withFileLock(path, os.O_RDWR|os.O_CREATE, func(file *os.File) error {
		if err := file.Truncate(0); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		if _, err := file.Seek(0, 0); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
		if _, err := file.Write(value); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return file.Sync()
	})
	if err != nil {
		return fmt.Errorf("slot: %s: %w", path, err)
	}
	return nil
}

// Close implements Slot.
func (f *File) Close() error { return nil }

// withFileLock executes fn with the file exclusively locked.
func withFileLock(path string, flag int, fn func(*os.File) error) error {
	file, err := os.OpenFile(path, flag, 0600)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	defer syscall.Flock(int(file.Fd()), syscall.LOCK_UN)

	return fn(file)
}

// sanitizeKey keeps keys from escaping the slot directory.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "slot"
	}
	return s
}
