// Package fileutil provides filesystem helpers shared across the pipeline.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindProjectRoot walks parent directories starting at start until it finds
// one containing marker, and returns that directory. It returns an error when
// the filesystem root is reached without finding the marker.
func FindProjectRoot(start, marker string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("error resolving start directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, marker)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root with %q not found above %s", marker, start)
		}
		dir = parent
	}
}
