// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/quailpub/internal/models"

// Provider is the interface for vault file operations. All paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every .md document under dir.
	List(dir string) ([]models.DocumentMeta, error)
	// ListFiles returns every non-hidden file under dir, documents included.
	ListFiles(dir string) ([]models.File, error)
	// Stat returns the file at path.
	Stat(path string) (models.File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
