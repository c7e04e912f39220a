package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
)

// CopyInitFiles copies the configured init files inside the state
// directory. Destinations that already exist are left alone, so edited
// copies survive restarts. Returns the destinations written and the
// sources that were missing.
func (c *Config) CopyInitFiles() (copied, missing []string, err error) {
	absDir, err := filepath.Abs(c.StateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}

	for i, f := range c.InitFiles {
		source, err := confinedPath(absDir, f.Source)
		if err != nil {
			return copied, missing, fmt.Errorf("%w: init_files[%d].source: %v", wardenerrors.ErrConfigInvalid, i, err)
		}
		dest, err := confinedPath(absDir, f.Dest)
		if err != nil {
			return copied, missing, fmt.Errorf("%w: init_files[%d].dest: %v", wardenerrors.ErrConfigInvalid, i, err)
		}

		if _, err := os.Stat(dest); err == nil {
			continue
		}
		data, err := os.ReadFile(source)
		if err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, f.Source)
				continue
			}
			return copied, missing, fmt.Errorf("failed to read init file %s: %w", f.Source, err)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return copied, missing, fmt.Errorf("failed to create init file directory: %w", err)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return copied, missing, fmt.Errorf("failed to write init file %s: %w", f.Dest, err)
		}
		copied = append(copied, dest)
	}
	return copied, missing, nil
}

// confinedPath joins rel to absDir and rejects paths that escape it.
func confinedPath(absDir, rel string) (string, error) {
	path := filepath.Join(absDir, rel)
	if path != absDir && !strings.HasPrefix(path, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes %s: %q", DirName, rel)
	}
	return path, nil
}
