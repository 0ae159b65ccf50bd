package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"flashdeck-backend/internal/logger"
)

const (
	MaxPDFBytes       = 10 << 20
	MaxExtractedChars = 25000
	pdfContentType    = "application/pdf"
)

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// ExtractPDF returns the plain text of a PDF upload, one block per page
// separated by a blank line, cut to MaxExtractedChars.
func (s *FileExtractService) ExtractPDF(ctx context.Context, r io.ReaderAt, size int64, contentType string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]), pdfContentType) {
		return "", &ValidationError{Fields: map[string]string{"file": "Invalid file type. Please select a PDF."}}
	}
	if size <= 0 {
		return "", &ValidationError{Fields: map[string]string{"file": "File is empty"}}
	}
	if size > MaxPDFBytes {
		return "", &ValidationError{Fields: map[string]string{"file": "File is too large (Max: 10 MB)."}}
	}

	pages, err := readPDFPages(r, size)
	if err != nil {
		logger.FromContext(ctx).Warn("pdf extraction failed", "error", err, "size", size)
		return "", &UpstreamError{Message: "Failed to parse PDF", Err: err}
	}

	text := truncateRunes(strings.TrimSpace(strings.Join(pages, "\n\n")), MaxExtractedChars)
	if text == "" {
		return "", &ValidationError{Fields: map[string]string{"file": "No extractable text found in PDF"}}
	}
	return text, nil
}

// readPDFPages recovers from panics inside the pdf package, which it raises
// on some malformed documents.
func readPDFPages(r io.ReaderAt, size int64) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text := normalizeExtractedText(content); text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
