// Package ingest converts an uploaded document into per-page plain
// text. Only PDF is accepted; anything else is rejected before the
// pipeline starts.
package ingest

import (
	"bytes"
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned for anything that is not a PDF.
var ErrUnsupportedFormat = errors.New("unsupported document format: only PDF is accepted")

// Result is the outcome of text extraction.
type Result struct {
	Pages     []string
	PageCount int
}

// Extractor turns raw document bytes into per-page text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

var pdfMagic = []byte("%PDF")

// IsPDF sniffs the document header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
