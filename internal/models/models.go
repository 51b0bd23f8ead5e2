// Package models defines the vault types shared across quailpub.
package models

import "time"

// File is any file in the vault, addressed by its slash-separated path
// relative to the vault root.
type File struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Ext     string    `json:"ext"` // without the leading dot
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DocumentMeta is a lightweight listing entry for a Markdown document.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
