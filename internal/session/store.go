// Package session provides file-backed persistence for warden run state.
// All state lives under the project's .warden directory: session state,
// tracking artifacts, and the run lock. Writes are atomic so a crashed or
// killed run never leaves a partially written state file behind.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Error Types
// -----------------------------------------------------------------------------

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when attempting to create a key that already exists.
var ErrAlreadyExists = errors.New("already exists")

// -----------------------------------------------------------------------------
// FileStore - Key-Value File Storage
// -----------------------------------------------------------------------------

// FileStore maps keys to files within a base directory. Keys use "/" as a
// path separator so callers can group related entries ("runs/<id>/state").
// It is safe for concurrent use within a single process; cross-process
// exclusion is handled by the run lock.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a FileStore rooted at the given directory.
// The directory is created if it does not exist.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the directory the store is rooted at.
func (fs *FileStore) BaseDir() string {
	return fs.baseDir
}

// Save persists data under the given key using an atomic write.
func (fs *FileStore) Save(ctx context.Context, key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return atomicWriteFile(path, data, 0644)
}

// Load retrieves the data stored under the given key.
func (fs *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes the data associated with the given key.
func (fs *FileStore) Delete(ctx context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.keyToPath(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a key exists without loading its data.
func (fs *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// List returns all keys matching the given prefix.
func (fs *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	searchDir := fs.baseDir
	if prefix != "" {
		searchDir = filepath.Join(fs.baseDir, prefix)
	}

	var keys []string
	err := filepath.Walk(searchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(fs.baseDir, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if prefix == "" || strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// SaveIfNotExists saves data only if the key does not already exist.
func (fs *FileStore) SaveIfNotExists(ctx context.Context, key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// O_EXCL fails if the file already exists
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// keyToPath converts a key to a filesystem path.
func (fs *FileStore) keyToPath(key string) string {
	return filepath.Join(fs.baseDir, filepath.FromSlash(key))
}

// atomicWriteFile writes data to path atomically via a temp file and rename.
// The temp file lives in the same directory so the rename cannot cross
// filesystems.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
