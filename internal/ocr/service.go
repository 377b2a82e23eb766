// Package ocr extracts text from scanned bank statements using the Google
// Cloud Vision API.
//
// Statements arrive as PDFs (the common case) or as photographed pages in
// PNG/JPEG. Both run through document text detection; PDFs are limited by
// the API to 20MB and 5 pages for synchronous processing.
//
// Required environment variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: path to a service account JSON file, OR
//   - GOOGLE_CREDENTIALS: inline JSON credentials string
package ocr

import (
	"context"
	"io"
	"time"
)

// Supported MIME types for statement documents.
const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

// Service extracts text from statement documents.
type Service interface {
	// ProcessDocument extracts text from a document of the given MIME
	// type, concatenated in reading order across pages.
	ProcessDocument(ctx context.Context, data io.Reader, mimeType string) (string, error)

	// ProcessDocumentWithMetadata also returns confidence and timing
	// information.
	ProcessDocumentWithMetadata(ctx context.Context, data io.Reader, mimeType string) (*Result, error)
}

// Result contains extracted text with processing metadata.
type Result struct {
	// Text is the extracted text from all pages in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages processed. Always 1 for images.
	PageCount int `json:"page_count"`

	// Confidence is the average detection confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// ProcessedAt is when processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR call took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
