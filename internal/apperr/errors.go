// Package apperr holds the sentinel errors shared across quailpub layers.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoFrontmatter     = errors.New("document has no frontmatter")
	ErrFrontmatterExists = errors.New("metadata already exists")
	ErrVerification      = errors.New("failed to verify the metadata")
	ErrUpload            = errors.New("upload failed")
	ErrBusy              = errors.New("another action is running for this document")
)
