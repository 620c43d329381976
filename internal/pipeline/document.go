package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/extract"
)

// Document is the analyzable content of a paper
type Document struct {
	Text     string // extracted text, empty for PDF-only documents
	PDF      []byte
	Citation *extract.Citation // nil unless the source was an HTML landing page
	Source   string
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads a document from a URL or a local path. HTML landing pages are
// reduced to text; when they advertise a citation_pdf_url the PDF is fetched
// as well.
func (f *Fetcher) Load(ctx context.Context, location string) (*Document, error) {
	if !IsRemote(location) {
		return f.loadFile(location)
	}

	res, err := f.FetchWithRetry(ctx, location)
	if err != nil {
		return nil, err
	}
	doc := &Document{Source: res.FinalURL}

	switch {
	case res.IsPDF():
		doc.PDF = res.Body

	case res.IsHTML():
		page := string(res.Body)
		text, err := extract.VisibleText(page)
		if err != nil {
			return nil, fmt.Errorf("extract text: %w", err)
		}
		doc.Text = text

		cit, err := extract.ParseCitation(page, res.FinalURL)
		if err != nil {
			return nil, fmt.Errorf("parse citation: %w", err)
		}
		doc.Citation = cit

		if cit.PDFURL != "" && cit.PDFURL != res.FinalURL {
			pdf, err := f.FetchWithRetry(ctx, cit.PDFURL)
			switch {
			case err != nil:
				f.logger.Info("landing page PDF unavailable, using page text",
					zap.String("url", cit.PDFURL), zap.Error(err))
			case pdf.IsPDF():
				doc.PDF = pdf.Body
			}
		}

	default:
		if !utf8.Valid(res.Body) {
			return nil, fmt.Errorf("unsupported content type %q", res.ContentType)
		}
		doc.Text = string(res.Body)
	}

	return doc, nil
}

func (f *Fetcher) loadFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if f.maxBytes > 0 && info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, f.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc := &Document{Source: path}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		doc.PDF = data
	case ext == ".html" || ext == ".htm":
		text, err := extract.VisibleText(string(data))
		if err != nil {
			return nil, fmt.Errorf("extract text: %w", err)
		}
		doc.Text = text
		if cit, err := extract.ParseCitation(string(data), ""); err == nil {
			doc.Citation = cit
		}
	case utf8.Valid(data):
		doc.Text = string(data)
	default:
		return nil, fmt.Errorf("%s: unsupported document format", path)
	}
	return doc, nil
}
