package indexer

import "time"

// IndexBuiltEvent is published after a compressed index has been written
// and renamed into place.
type IndexBuiltEvent struct {
	Path      string    `json:"path"`
	Docs      int       `json:"docs"`
	Terms     int       `json:"terms"`
	BlobBytes int64     `json:"blob_bytes"`
	FileBytes int64     `json:"file_bytes"`
	BuiltAt   time.Time `json:"built_at"`
}

// NewIndexBuiltEvent describes a finished build of the file at path.
func NewIndexBuiltEvent(path string, stats BuildStats) IndexBuiltEvent {
	return IndexBuiltEvent{
		Path:      path,
		Docs:      stats.Docs,
		Terms:     stats.Terms,
		BlobBytes: stats.BlobBytes,
		FileBytes: stats.FileBytes,
		BuiltAt:   time.Now().UTC(),
	}
}
