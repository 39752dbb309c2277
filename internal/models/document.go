// Package models defines the domain types for SafeVault.
package models

import (
	"path"
	"time"
)

// Document is a text file in the vault folder. Content is nil for list
// entries and only set on the currently opened document.
type Document struct {
	Path     string  `json:"path"`
	Content  *string `json:"content,omitempty"`
	Checksum string  `json:"checksum,omitempty"`
}

// Name returns the file name part of the document path.
func (d Document) Name() string {
	return path.Base(d.Path)
}

// WithContent returns a copy of d hydrated with content.
func (d Document) WithContent(content, checksum string) Document {
	d.Content = &content
	d.Checksum = checksum
	return d
}

// Text returns the content or an empty string when unset.
func (d Document) Text() string {
	if d.Content == nil {
		return ""
	}
	return *d.Content
}

// DirEntry is one entry of a folder listing.
type DirEntry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
