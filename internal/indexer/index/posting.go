package index

// Posting records the positions of one term inside one document.
type Posting struct {
	DocID     uint32   `json:"doc_id"`
	Positions []uint32 `json:"positions"`
}

// PostingList is a term's postings ordered by ascending DocID.
type PostingList []Posting

// DocIDs returns the list's document IDs in order.
func (pl PostingList) DocIDs() []uint32 {
	ids := make([]uint32, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

// Find returns the positions recorded for docID using binary search.
func (pl PostingList) Find(docID uint32) ([]uint32, bool) {
	lo, hi := 0, len(pl)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if pl[mid].DocID < docID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pl) && pl[lo].DocID == docID {
		return pl[lo].Positions, true
	}
	return nil, false
}

// Map converts the list into the doc_id -> positions mapping exposed by the
// query API.
func (pl PostingList) Map() map[uint32][]uint32 {
	m := make(map[uint32][]uint32, len(pl))
	for _, p := range pl {
		m[p.DocID] = p.Positions
	}
	return m
}

// TermEntry pairs a term with its postings.
type TermEntry struct {
	Term     string
	Postings PostingList
}
