// Package executor evaluates parsed queries against decoded postings lists.
// Every result is a list of doc IDs sorted ascending without duplicates.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/RoaringBitmap/roaring/v2"
)

// PostingsSource returns the postings for a term. Unknown or unreadable terms
// yield an empty list.
type PostingsSource interface {
	Postings(term string) index.PostingList
}

// Executor runs queries against one PostingsSource.
type Executor struct {
	source    PostingsSource
	stopWords *tokenizer.StopWords
	logger    *slog.Logger
}

// New creates an Executor. stopWords filters phrase terms and may be nil.
func New(source PostingsSource, stopWords *tokenizer.StopWords) *Executor {
	return &Executor{
		source:    source,
		stopWords: stopWords,
		logger:    slog.Default().With("component", "query-executor"),
	}
}

// Execute evaluates q. The context is checked between postings fetches.
func (e *Executor) Execute(ctx context.Context, q parser.Query) ([]uint32, error) {
	var (
		docs []uint32
		err  error
	)
	switch q := q.(type) {
	case parser.SingleTerm:
		docs, err = e.single(ctx, q.Term)
	case parser.Or:
		docs, err = e.or(ctx, q.Terms)
	case parser.And:
		docs, err = e.and(ctx, q.Terms)
	case parser.Phrase:
		docs, err = e.phrase(ctx, q.Terms)
	default:
		return nil, fmt.Errorf("%w: unsupported query form %T", apperrors.ErrInvalidInput, q)
	}
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []uint32{}
	}
	e.logger.Debug("query executed", "mode", q.Mode(), "key", q.Key(), "results", len(docs))
	return docs, nil
}

func (e *Executor) single(ctx context.Context, term string) ([]uint32, error) {
	if term == "" {
		return nil, nil
	}
	f := newFetcher(ctx, e.source)
	pl, err := f.get(term)
	if err != nil {
		return nil, err
	}
	return pl.DocIDs(), nil
}

func (e *Executor) or(ctx context.Context, terms []string) ([]uint32, error) {
	f := newFetcher(ctx, e.source)
	lists := make([][]uint32, 0, len(terms))
	for _, term := range terms {
		pl, err := f.get(term)
		if err != nil {
			return nil, err
		}
		lists = append(lists, pl.DocIDs())
	}
	return Union(lists...), nil
}

func (e *Executor) and(ctx context.Context, terms []string) ([]uint32, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	f := newFetcher(ctx, e.source)
	lists := make([][]uint32, 0, len(terms))
	for _, term := range terms {
		pl, err := f.get(term)
		if err != nil {
			return nil, err
		}
		if len(pl) == 0 {
			return nil, nil
		}
		lists = append(lists, pl.DocIDs())
	}
	return IntersectAll(lists), nil
}

// phrase matches documents where the non-stop-word terms occur at
// consecutive positions in query order. Positions were assigned after
// stop-word removal, so "science of search" matches "science search".
func (e *Executor) phrase(ctx context.Context, terms []string) ([]uint32, error) {
	kept := make([]string, 0, len(terms))
	for _, term := range terms {
		if !e.stopWords.Contains(term) {
			kept = append(kept, term)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	f := newFetcher(ctx, e.source)
	lists := make([]index.PostingList, len(kept))
	docLists := make([][]uint32, len(kept))
	for i, term := range kept {
		pl, err := f.get(term)
		if err != nil {
			return nil, err
		}
		if len(pl) == 0 {
			return nil, nil
		}
		lists[i] = pl
		docLists[i] = pl.DocIDs()
	}
	candidates := IntersectAll(docLists)

	var results []uint32
	sets := make([]*roaring.Bitmap, len(kept)-1)
	for _, docID := range candidates {
		first, _ := lists[0].Find(docID)
		for i := range sets {
			positions, _ := lists[i+1].Find(docID)
			sets[i] = roaring.BitmapOf(positions...)
		}
		if chainAt(first, sets) {
			results = append(results, docID)
		}
	}
	return results, nil
}

// chainAt reports whether some p in first has p+i+1 in sets[i] for every i.
func chainAt(first []uint32, sets []*roaring.Bitmap) bool {
	for _, p := range first {
		matched := true
		for i, set := range sets {
			next := uint64(p) + uint64(i) + 1
			if next > uint64(^uint32(0)) || !set.Contains(uint32(next)) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// Intersect merges two ascending, duplicate-free lists with two pointers.
func Intersect(p1, p2 []uint32) []uint32 {
	out := make([]uint32, 0, min(len(p1), len(p2)))
	i, j := 0, 0
	for i < len(p1) && j < len(p2) {
		switch {
		case p1[i] == p2[j]:
			out = append(out, p1[i])
			i++
			j++
		case p1[i] < p2[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// IntersectAll folds Intersect over lists, shortest first, and stops as soon
// as the running result is empty. lists is reordered in place.
func IntersectAll(lists [][]uint32) []uint32 {
	if len(lists) == 0 {
		return nil
	}
	sort.SliceStable(lists, func(i, j int) bool { return len(lists[i]) < len(lists[j]) })
	result := lists[0]
	for _, l := range lists[1:] {
		if len(result) == 0 {
			break
		}
		result = Intersect(result, l)
	}
	return result
}

// Union returns the sorted, de-duplicated union of lists.
func Union(lists ...[]uint32) []uint32 {
	bm := roaring.New()
	for _, l := range lists {
		bm.AddMany(l)
	}
	return bm.ToArray()
}

// fetcher caches postings per distinct term for one query.
type fetcher struct {
	ctx    context.Context
	source PostingsSource
	cache  map[string]index.PostingList
}

func newFetcher(ctx context.Context, source PostingsSource) *fetcher {
	return &fetcher{ctx: ctx, source: source, cache: make(map[string]index.PostingList)}
}

func (f *fetcher) get(term string) (index.PostingList, error) {
	if pl, ok := f.cache[term]; ok {
		return pl, nil
	}
	if err := f.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	pl := f.source.Postings(term)
	f.cache[term] = pl
	return pl, nil
}
