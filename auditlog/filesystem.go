package auditlog

import (
	"io"
	"os"
)

// File is an open audit log file accepting appended content.
type File interface {
	io.Writer
	Close() error
}

// FileSystem is the interface to the filesystem operations the audit
// writer needs: directory creation, append-create opens and the final
// commit rename.
type FileSystem interface {
	MkDirAll(path string, mode os.FileMode) error
	OpenAppend(path string, mode os.FileMode) (File, error)
	Rename(oldPath, newPath string) error
}

// OSFileSystem is the FileSystem implementation backed by the host
// filesystem.
type OSFileSystem struct {
}

// MkDirAll creates a directory along with any necessary parents. A
// pre-existing directory is not an error.
func (fs *OSFileSystem) MkDirAll(path string, mode os.FileMode) error {
	return os.MkdirAll(path, mode)
}

// OpenAppend opens the file for appending, creating it with the given mode
// if it does not exist.
func (fs *OSFileSystem) OpenAppend(path string, mode os.FileMode) (File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, mode)
}

// Rename atomically moves oldPath to newPath on the same filesystem.
func (fs *OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}
