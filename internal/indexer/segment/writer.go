// Package segment reads and writes the single-file compressed index:
//
//	[4-byte big-endian L][L bytes of JSON dictionary][postings blob]
//
// Dictionary spans are relative to the first blob byte at offset 4+L.
package segment

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/postings"
)

// HeaderSize is the length of the dictionary-length prefix.
const HeaderSize = 4

// Stats describes a written or opened index file.
type Stats struct {
	Terms     int   `json:"terms"`
	DictBytes int64 `json:"dict_bytes"`
	BlobBytes int64 `json:"blob_bytes"`
	FileBytes int64 `json:"file_bytes"`
}

// Write atomically creates path containing dict and blob. It writes to a
// .tmp sibling first and renames on success, so readers never observe a
// half-written file.
func Write(path string, dict *postings.Dictionary, blob []byte) (Stats, error) {
	dictData, err := dict.MarshalJSON()
	if err != nil {
		return Stats{}, fmt.Errorf("marshaling dictionary: %w", err)
	}
	if len(dictData) > math.MaxUint32 {
		return Stats{}, fmt.Errorf("dictionary of %d bytes does not fit the header", len(dictData))
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Stats{}, fmt.Errorf("creating index directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return Stats{}, fmt.Errorf("creating temp index file: %w", err)
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(dictData)))
	for _, part := range []struct {
		name string
		data []byte
	}{
		{"header", header},
		{"dictionary", dictData},
		{"postings", blob},
	} {
		if _, err := f.Write(part.data); err != nil {
			os.Remove(tmpPath)
			return Stats{}, fmt.Errorf("writing %s: %w", part.name, err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return Stats{}, fmt.Errorf("syncing index file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Stats{}, fmt.Errorf("renaming index file: %w", err)
	}
	return Stats{
		Terms:     dict.Len(),
		DictBytes: int64(len(dictData)),
		BlobBytes: int64(len(blob)),
		FileBytes: int64(HeaderSize + len(dictData) + len(blob)),
	}, nil
}
