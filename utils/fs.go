package utils

import (
	"fmt"
	"path/filepath"

	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/twpayne/go-vfs/v4"
)

// Exists reports whether path exists on the given FS.
func Exists(fs types.FS, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(fs types.FS, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// CopyFile copies source to destination, keeping the source's mode.
// The destination's parent directories are created as needed.
func CopyFile(fs types.FS, source, destination string) error {
	info, err := fs.Stat(source)
	if err != nil {
		return fmt.Errorf("copying %s: %w", source, err)
	}
	data, err := fs.ReadFile(source)
	if err != nil {
		return fmt.Errorf("copying %s: %w", source, err)
	}
	if err := vfs.MkdirAll(fs, filepath.Dir(destination), constants.DirPerm); err != nil {
		return fmt.Errorf("copying %s to %s: %w", source, destination, err)
	}
	if err := fs.WriteFile(destination, data, info.Mode()); err != nil {
		return fmt.Errorf("copying %s to %s: %w", source, destination, err)
	}
	return nil
}
