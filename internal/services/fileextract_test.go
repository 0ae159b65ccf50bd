package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPDF_RejectsBadUploads(t *testing.T) {
	svc := NewFileExtractService()
	data := []byte("%PDF-1.4\n")

	testCases := []struct {
		name        string
		size        int64
		contentType string
		message     string
	}{
		{"wrong type", int64(len(data)), "image/png", "Invalid file type. Please select a PDF."},
		{"empty", 0, "application/pdf", "File is empty"},
		{"too large", MaxPDFBytes + 1, "application/pdf", "File is too large (Max: 10 MB)."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ExtractPDF(context.Background(), bytes.NewReader(data), tc.size, tc.contentType)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Fields["file"])
		})
	}
}

func TestExtractPDF_MalformedDocument(t *testing.T) {
	data := []byte("%PDF-1.4\nthis is not really a pdf body")

	_, err := NewFileExtractService().ExtractPDF(context.Background(), bytes.NewReader(data), int64(len(data)), "application/pdf; charset=binary")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "Failed to parse PDF", upstream.Message)
}

func TestNormalizeExtractedText(t *testing.T) {
	in := "  Title  \r\n\r\n\r\n  first line\rsecond line \n\n\n\nend  "
	assert.Equal(t, "Title\n\nfirst line\nsecond line\n\nend", normalizeExtractedText(in))
	assert.Empty(t, normalizeExtractedText(" \n \n "))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "héllo", truncateRunes("héllo wörld", 5))

	long := strings.Repeat("ü", MaxExtractedChars+10)
	assert.Len(t, []rune(truncateRunes(long, MaxExtractedChars)), MaxExtractedChars)
}
