package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text from PDF documents page by page.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF text extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (res Result, err error) {
	if !IsPDF(data) {
		return Result{}, ErrUnsupportedFormat
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	if len(pages) == 0 {
		return Result{}, fmt.Errorf("PDF contains no pages")
	}
	return Result{Pages: pages, PageCount: len(pages)}, nil
}
