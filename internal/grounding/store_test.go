package grounding

import (
	"strings"
	"testing"
)

func TestSetDocumentJoinsPagesWithMarkers(t *testing.T) {
	t.Parallel()
	s := NewStore()
	doc, err := s.SetDocument("trip.pdf", []string{"first page text", "second page text"}, 42)
	if err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}
	if doc.PageCount != 2 || doc.ByteSize != 42 || doc.Name != "trip.pdf" {
		t.Fatalf("unexpected document metadata: %+v", doc)
	}
	if !strings.HasPrefix(doc.FullText, "--- Page 1 ---\nfirst page text") {
		t.Fatalf("missing page 1 marker:\n%s", doc.FullText)
	}
	if !strings.Contains(doc.FullText, "\n\n--- Page 2 ---\nsecond page text") {
		t.Fatalf("missing page 2 marker:\n%s", doc.FullText)
	}
}

func TestSetDocumentReplacesWholesale(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if _, err := s.SetDocument("a.pdf", []string{"one", "two", "three"}, 10); err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}
	if _, err := s.SetDocument("b.pdf", []string{"only page"}, 5); err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}

	doc, ok := s.Document()
	if !ok {
		t.Fatal("expected a document")
	}
	if doc.Name != "b.pdf" || doc.PageCount != 1 {
		t.Fatalf("expected the replacement document, got %+v", doc)
	}
	if strings.Contains(doc.FullText, "two") {
		t.Fatal("prior document text must be gone")
	}
}

func TestDocumentNotSet(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if _, ok := s.Document(); ok {
		t.Fatal("expected no document on a fresh store")
	}
	if _, err := s.SearchPages("anything", 3); err == nil {
		t.Fatal("expected an error searching without a document")
	}
}

func TestSearchPagesFindsTheRightPage(t *testing.T) {
	t.Parallel()
	s := NewStore()
	pages := []string{
		"Flight NH106 departs at 09:00 from Haneda",
		"Hotel Gracery Shinjuku, check-in after 15:00",
		"Dinner reservation at Sukiyabashi",
	}
	if _, err := s.SetDocument("trip.pdf", pages, 100); err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}

	hits, err := s.SearchPages("Shinjuku", 3)
	if err != nil {
		t.Fatalf("SearchPages failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].Page != 2 {
		t.Fatalf("expected page 2 first, got %+v", hits)
	}
	if !strings.Contains(hits[0].Snippet, "Hotel Gracery") {
		t.Fatalf("expected a snippet from page 2, got %q", hits[0].Snippet)
	}
}

func TestPageMarkerFormat(t *testing.T) {
	t.Parallel()
	if got := PageMarker(7); got != "--- Page 7 ---" {
		t.Fatalf("unexpected marker %q", got)
	}
}
