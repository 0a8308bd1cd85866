package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/postings"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
)

// Reader serves postings lookups from an index file. The dictionary is held
// in memory; each lookup reads exactly one span from disk. A Reader is safe
// for concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	dict     *postings.Dictionary
	blobBase int64
	blobSize int64
	metrics  *metrics.Metrics
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Reader.
type Option func(*Reader)

// WithMetrics counts postings entries that fail to decode.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// OpenReader opens and validates the index file at path. A missing file is
// ErrIndexNotFound; a bad header, an unparseable dictionary or a span outside
// the blob is ErrMalformedIndex.
func OpenReader(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	size := info.Size()
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, shorter than the header", apperrors.ErrMalformedIndex, path, size)
	}

	header := make([]byte, HeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", apperrors.ErrMalformedIndex, err)
	}
	dictLen := int64(binary.BigEndian.Uint32(header))
	if dictLen > size-HeaderSize {
		return nil, fmt.Errorf("%w: dictionary length %d exceeds file size %d", apperrors.ErrMalformedIndex, dictLen, size)
	}

	dictBytes := make([]byte, dictLen)
	if _, err := f.ReadAt(dictBytes, HeaderSize); err != nil {
		return nil, fmt.Errorf("%w: reading dictionary: %w", apperrors.ErrMalformedIndex, err)
	}
	var dict postings.Dictionary
	if err := dict.UnmarshalJSON(dictBytes); err != nil {
		return nil, err
	}

	blobBase := HeaderSize + dictLen
	blobSize := size - blobBase
	for _, term := range dict.Terms() {
		span, _ := dict.Lookup(term)
		if span.Offset > blobSize || span.Size > blobSize-span.Offset {
			return nil, fmt.Errorf("%w: term %q span [%d,+%d) exceeds blob of %d bytes",
				apperrors.ErrMalformedIndex, term, span.Offset, span.Size, blobSize)
		}
	}

	return &Reader{
		file:     f,
		filePath: path,
		dict:     &dict,
		blobBase: blobBase,
		blobSize: blobSize,
		logger:   slog.Default().With("component", "index-reader", "path", path),
	}, nil
}

// Lookup returns the decoded postings for term. Unknown terms yield an empty
// list and no error; a corrupt entry yields ErrCorruptPostings.
func (r *Reader) Lookup(term string) (index.PostingList, error) {
	span, ok := r.dict.Lookup(term)
	if !ok || span.Size == 0 {
		return nil, nil
	}
	data := make([]byte, span.Size)
	if _, err := r.file.ReadAt(data, r.blobBase+span.Offset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", term, err)
	}
	pl, err := postings.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("term %q: %w", term, err)
	}
	return pl, nil
}

// Postings is Lookup for the query path: any failure is logged, counted, and
// served as an empty list so one bad entry cannot fail a whole query.
func (r *Reader) Postings(term string) index.PostingList {
	pl, err := r.Lookup(term)
	if err != nil {
		span, _ := r.dict.Lookup(term)
		r.logger.Warn("postings entry unreadable, serving empty",
			"term", term,
			"offset", span.Offset,
			"size", span.Size,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.PostingsDecodeErrors.Inc()
		}
		return nil
	}
	return pl
}

// Contains reports whether term has a dictionary entry.
func (r *Reader) Contains(term string) bool {
	_, ok := r.dict.Lookup(term)
	return ok
}

// Terms returns every indexed term in blob order.
func (r *Reader) Terms() []string {
	return r.dict.Terms()
}

func (r *Reader) TermCount() int {
	return r.dict.Len()
}

func (r *Reader) BlobSize() int64 {
	return r.blobSize
}

func (r *Reader) Path() string {
	return r.filePath
}

// Stats summarizes the open file.
func (r *Reader) Stats() Stats {
	return Stats{
		Terms:     r.dict.Len(),
		DictBytes: r.blobBase - HeaderSize,
		BlobBytes: r.blobSize,
		FileBytes: r.blobBase + r.blobSize,
	}
}

// Close releases the file handle. Calling it more than once is a no-op.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.file.Close()
	})
	return r.closeErr
}
