// Package storage defines the data-directory abstraction that persisted
// blobs, backups and quarantined files go through.
package storage

import "time"

// Entry describes one stored blob.
type Entry struct {
	Path      string    // relative to the data root
	Checksum  string    // hex SHA-256 of the content
	UpdatedAt time.Time // file modification time
}

// Provider is the interface for data-directory file operations. All paths
// are relative to the provider root; paths escaping the root are rejected.
type Provider interface {
	// List returns metadata for every .json file directly inside dir.
	List(dir string) ([]Entry, error)
	// Dirs returns the names of the sub-directories of dir, sorted.
	Dirs(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error matching fs.ErrNotExist.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// DeleteAll removes path and everything below it.
	DeleteAll(path string) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
}
