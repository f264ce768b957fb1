// Package capture locates capture files, the recorded byte streams fed to
// the parser, inside a capture directory.
package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultGlob matches capture files when no pattern is given.
const DefaultGlob = "*.log"

// Sentinel errors.
var (
	ErrCaptureDirNotFound = errors.New("capture directory not found")
	ErrNoCaptureFiles     = errors.New("no capture files found")
)

// candidate holds a capture file path and its cached modification time.
type candidate struct {
	path    string
	modTime int64
}

// FindLatest returns the most recently modified regular file in dir whose
// name matches glob. An empty glob means DefaultGlob.
//
// Stat results are taken once, so files removed while sorting do not
// cause errors.
func FindLatest(dir, glob string) (string, error) {
	if glob == "" {
		glob = DefaultGlob
	}
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return "", fmt.Errorf("globbing capture files: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoCaptureFiles
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, candidate{
			path:    m,
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", ErrNoCaptureFiles
	}

	// Newest first; ties go to the lexically greater name so the result is stable.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime != candidates[j].modTime {
			return candidates[i].modTime > candidates[j].modTime
		}
		return candidates[i].path > candidates[j].path
	})
	return candidates[0].path, nil
}

// ResolveDir checks that dir is a directory and returns it with symlinks
// resolved.
func ResolveDir(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrCaptureDirNotFound, dir)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureDirNotFound, err)
	}
	return resolved, nil
}
