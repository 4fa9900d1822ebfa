// Package grounding owns the extracted text of the active document.
// The stored text is the sole factual basis for both itinerary
// extraction and chat.
package grounding

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/tripnote/tripnote/internal/trip"
)

// PageMarker renders the literal delimiter inserted between pages so
// that answers can cite page numbers downstream.
func PageMarker(n int) string {
	return fmt.Sprintf("--- Page %d ---", n)
}

// JoinPages concatenates per-page text with page-delimiter markers.
func JoinPages(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(PageMarker(i + 1))
		b.WriteString("\n")
		b.WriteString(page)
	}
	return b.String()
}

// PageHit is one page matching a grounding search.
type PageHit struct {
	Page    int     `json:"page"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type pageDoc struct {
	Text string
}

// Store holds the single active document, immutable once set for a
// session. Setting a new document replaces the prior one wholesale.
type Store struct {
	mu    sync.RWMutex
	doc   *trip.GroundingDocument
	pages []string
	index bleve.Index
}

func NewStore() *Store {
	return &Store{}
}

// SetDocument replaces any prior document unconditionally. The caller
// is responsible for discarding any itinerary and transcript derived
// from the previous document.
func (s *Store) SetDocument(name string, pages []string, byteSize int64) (trip.GroundingDocument, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return trip.GroundingDocument{}, fmt.Errorf("failed to build page index: %w", err)
	}
	for i, page := range pages {
		if err := index.Index(strconv.Itoa(i+1), pageDoc{Text: page}); err != nil {
			return trip.GroundingDocument{}, fmt.Errorf("failed to index page %d: %w", i+1, err)
		}
	}

	doc := trip.GroundingDocument{
		Name:      name,
		FullText:  JoinPages(pages),
		ByteSize:  byteSize,
		PageCount: len(pages),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = &doc
	s.pages = append([]string(nil), pages...)
	s.index = index
	return doc, nil
}

// Document returns the current document, or false when none is set.
func (s *Store) Document() (trip.GroundingDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return trip.GroundingDocument{}, false
	}
	return *s.doc, true
}

// SearchPages finds the pages most relevant to the query.
func (s *Store) SearchPages(q string, k int) ([]PageHit, error) {
	s.mu.RLock()
	index := s.index
	pages := s.pages
	s.mu.RUnlock()
	if index == nil {
		return nil, fmt.Errorf("no document set")
	}
	if k <= 0 {
		k = 3
	}

	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := index.Search(req)
	if err != nil {
		return nil, err
	}

	var out []PageHit
	for _, hit := range res.Hits {
		n, err := strconv.Atoi(hit.ID)
		if err != nil || n < 1 || n > len(pages) {
			continue
		}
		out = append(out, PageHit{Page: n, Snippet: snippet(pages[n-1]), Score: hit.Score})
	}
	return out, nil
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= 240 {
		return s
	}
	return s[:240] + "…"
}
