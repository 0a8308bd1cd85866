package index

import (
	"sync"
)

// MemoryIndex accumulates term -> doc -> positions during a build. Terms keep
// the order in which they were first seen, and documents must be added in
// ascending DocID order so every PostingList stays sorted without a resort.
type MemoryIndex struct {
	mu       sync.RWMutex
	terms    []string
	index    map[string]PostingList
	docCount int
	lastDoc  uint32
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]PostingList),
	}
}

// AddDocument records every term of a tokenized document. terms[i] occurs at
// position i. It reports false, and changes nothing, when docID does not
// follow the previously added document.
func (m *MemoryIndex) AddDocument(docID uint32, terms []string) bool {
	termData := make(map[string][]uint32)
	order := make([]string, 0, len(terms))
	for pos, term := range terms {
		positions, exists := termData[term]
		if !exists {
			order = append(order, term)
			positions = make([]uint32, 0, 4)
		}
		termData[term] = append(positions, uint32(pos))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docCount > 0 && docID <= m.lastDoc {
		return false
	}
	for _, term := range order {
		postings, exists := m.index[term]
		if !exists {
			m.terms = append(m.terms, term)
		}
		positions := termData[term]
		m.index[term] = append(postings, Posting{DocID: docID, Positions: positions})
		m.size += int64(len(term) + len(positions)*4 + 32)
	}
	m.lastDoc = docID
	m.docCount++
	return true
}

func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[term]
}

// Snapshot returns every term with its postings in first-seen term order.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.terms))
	for _, term := range m.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: m.index[term],
		})
	}
	return entries
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docCount
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terms)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = nil
	m.index = make(map[string]PostingList)
	m.docCount = 0
	m.lastDoc = 0
	m.size = 0
}
