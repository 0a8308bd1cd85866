// Package postings compresses per-term postings lists with gap encoding on
// top of the vbyte integer codec.
//
// One term's run is laid out as
//
//	count_docs
//	gap(doc_0) ... gap(doc_n-1)
//	for each doc: count_positions gap(pos_0) ... gap(pos_m-1)
//
// where the first gap of every sequence is taken from 0.
package postings

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/vbyte"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// Encode returns the compressed run for one term.
func Encode(pl index.PostingList) ([]byte, error) {
	return AppendList(nil, pl)
}

// AppendList appends the compressed run for pl to dst. Doc IDs and each
// document's positions must be strictly increasing.
func AppendList(dst []byte, pl index.PostingList) ([]byte, error) {
	dst = vbyte.AppendUint(dst, uint64(len(pl)))
	var prev uint32
	for i, p := range pl {
		if i > 0 && p.DocID <= prev {
			return nil, fmt.Errorf("%w: doc id %d follows %d", apperrors.ErrInvalidInput, p.DocID, prev)
		}
		dst = vbyte.AppendUint(dst, uint64(p.DocID-prev))
		prev = p.DocID
	}
	for _, p := range pl {
		dst = vbyte.AppendUint(dst, uint64(len(p.Positions)))
		var prevPos uint32
		for j, pos := range p.Positions {
			if j > 0 && pos <= prevPos {
				return nil, fmt.Errorf("%w: doc %d position %d follows %d", apperrors.ErrInvalidInput, p.DocID, pos, prevPos)
			}
			dst = vbyte.AppendUint(dst, uint64(pos-prevPos))
			prevPos = pos
		}
	}
	return dst, nil
}

// Decode reverses AppendList. An empty run, or a run declaring zero
// documents, decodes to an empty list. Truncated or inconsistent runs fail
// with ErrCorruptPostings and never yield partial data.
func Decode(data []byte) (index.PostingList, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r := runReader{dec: vbyte.NewDecoder(data)}

	numDocs, err := r.next("document count")
	if err != nil {
		return nil, err
	}
	if numDocs == 0 {
		if rem := r.dec.Remaining(); rem > 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after empty postings", apperrors.ErrCorruptPostings, rem)
		}
		return nil, nil
	}
	// every document costs at least a gap byte and a count byte
	if numDocs > uint64(r.dec.Remaining())/2 {
		return nil, fmt.Errorf("%w: %d documents declared in %d bytes", apperrors.ErrCorruptPostings, numDocs, len(data))
	}

	pl := make(index.PostingList, numDocs)
	var docID uint64
	for i := range pl {
		gap, err := r.next("doc id gap")
		if err != nil {
			return nil, err
		}
		if i > 0 && gap == 0 {
			return nil, fmt.Errorf("%w: repeated doc id %d", apperrors.ErrCorruptPostings, docID)
		}
		docID += gap
		if docID > math.MaxUint32 {
			return nil, fmt.Errorf("%w: doc id %d out of range", apperrors.ErrCorruptPostings, docID)
		}
		pl[i].DocID = uint32(docID)
	}

	for i := range pl {
		count, err := r.next("position count")
		if err != nil {
			return nil, err
		}
		if count > uint64(r.dec.Remaining()) {
			return nil, fmt.Errorf("%w: doc %d declares %d positions, %d bytes left",
				apperrors.ErrCorruptPostings, pl[i].DocID, count, r.dec.Remaining())
		}
		positions := make([]uint32, count)
		var pos uint64
		for j := range positions {
			gap, err := r.next("position gap")
			if err != nil {
				return nil, err
			}
			if j > 0 && gap == 0 {
				return nil, fmt.Errorf("%w: doc %d repeats position %d", apperrors.ErrCorruptPostings, pl[i].DocID, pos)
			}
			pos += gap
			if pos > math.MaxUint32 {
				return nil, fmt.Errorf("%w: position %d out of range", apperrors.ErrCorruptPostings, pos)
			}
			positions[j] = uint32(pos)
		}
		pl[i].Positions = positions
	}

	if rem := r.dec.Remaining(); rem > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", apperrors.ErrCorruptPostings, rem)
	}
	return pl, nil
}

type runReader struct {
	dec *vbyte.Decoder
}

func (r runReader) next(what string) (uint64, error) {
	n, err := r.dec.Next()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: run ends before %s", apperrors.ErrCorruptPostings, what)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %w", apperrors.ErrCorruptPostings, what, err)
	}
	return n, nil
}

// Compress encodes every entry, in the given order, into one contiguous blob
// and records each term's span in the returned Dictionary.
func Compress(entries []index.TermEntry) (*Dictionary, []byte, error) {
	dict := NewDictionary(len(entries))
	blob := make([]byte, 0, len(entries)*8)
	for _, entry := range entries {
		start := len(blob)
		var err error
		blob, err = AppendList(blob, entry.Postings)
		if err != nil {
			return nil, nil, fmt.Errorf("compressing term %q: %w", entry.Term, err)
		}
		span := Span{Offset: int64(start), Size: int64(len(blob) - start)}
		if err := dict.Add(entry.Term, span); err != nil {
			return nil, nil, err
		}
	}
	return dict, blob, nil
}
