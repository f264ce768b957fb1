// Package safefile provides hardened reads of tree description and plugin files.
package safefile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotRegularFile is returned when the path names a symlink, FIFO,
	// device, socket or directory.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrFileTooLarge is returned when the file exceeds the caller's limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned by ReadRegular for zero-length files.
	ErrEmptyFile = errors.New("file is empty")
)

// OpenRegular opens path after checking, without following symlinks, that it
// names a regular file, then checks the opened descriptor again so that a
// file swapped between the two calls is rejected.
//
// The caller must close the returned file.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}
	return f, info, nil
}

// ReadRegular reads a whole regular file of at most maxSize bytes.
// The limit is enforced on the stat size and again while reading, so a file
// growing after the stat is still rejected.
func ReadRegular(path string, maxSize int64) ([]byte, error) {
	f, info, err := OpenRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if info.Size() == 0 {
		return nil, ErrEmptyFile
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, maxSize)
	}
	return data, nil
}
