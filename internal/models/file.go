package models

import "time"

// FileEntry describes one shareable file in the upload directory. Entries are
// derived from filesystem metadata on every listing and never persisted.
type FileEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
