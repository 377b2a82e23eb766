package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const (
	// MaxFileSizeBytes is the Vision API limit for synchronous processing.
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the Vision API page limit for synchronous PDF
	// processing.
	MaxPagesSync = 5
)

// GoogleVisionService implements Service using the Google Cloud Vision API.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService creates an OCR service with credentials from the
// environment: GOOGLE_CREDENTIALS inline JSON, GOOGLE_APPLICATION_CREDENTIALS
// file path, or application default credentials.
func NewGoogleVisionService(ctx context.Context) (Service, error) {
	const op = "NewGoogleVisionService"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionService{client: client}, nil
}

// NewGoogleVisionServiceWithClient creates an OCR service with an explicit
// client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) Service {
	return &GoogleVisionService{client: client}
}

// ProcessDocument extracts text from a statement document.
func (g *GoogleVisionService) ProcessDocument(ctx context.Context, data io.Reader, mimeType string) (string, error) {
	result, err := g.ProcessDocumentWithMetadata(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata extracts text from a statement document with
// confidence and timing metadata.
func (g *GoogleVisionService) ProcessDocumentWithMetadata(ctx context.Context, data io.Reader, mimeType string) (*Result, error) {
	const op = "ProcessDocumentWithMetadata"
	startTime := time.Now()

	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}

	if len(raw) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(raw)))
	}

	var result *Result
	switch mimeType {
	case MimePDF:
		if len(raw) < 4 || string(raw[:4]) != "%PDF" {
			return nil, WrapOCRError(op, ErrUnsupportedFormat, "missing PDF header")
		}
		result, err = g.processFile(ctx, raw, mimeType)
	case MimePNG, MimeJPEG:
		result, err = g.processImage(ctx, raw)
	default:
		return nil, WrapOCRError(op, ErrUnsupportedFormat, fmt.Sprintf("mime type %q", mimeType))
	}
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	return result, nil
}

// processFile runs document text detection over an inline PDF.
func (g *GoogleVisionService) processFile(ctx context.Context, raw []byte, mimeType string) (*Result, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  raw,
					MimeType: mimeType,
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, NewOCRError("processFile", ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewOCRError("processFile", ErrOCRFailed, "no response from Vision API")
	}
	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, NewOCRError("processFile", ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	pageCount := len(fileResp.Responses)
	if pageCount > MaxPagesSync {
		return nil, NewOCRError("processFile", ErrTooManyPages, fmt.Sprintf("document has %d pages", pageCount))
	}

	var allText strings.Builder
	var confidenceSum float32
	var confidenceCount int

	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		if page.FullTextAnnotation == nil {
			continue
		}
		if pageIdx > 0 {
			fmt.Fprintf(&allText, "\n\n--- Page %d ---\n\n", pageIdx+1)
		}
		allText.WriteString(page.FullTextAnnotation.Text)

		for _, annotation := range page.TextAnnotations {
			if annotation.Confidence > 0 {
				confidenceSum += annotation.Confidence
				confidenceCount++
			}
		}
	}

	text := allText.String()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	return &Result{
		Text:       text,
		PageCount:  pageCount,
		Confidence: avgConfidence,
	}, nil
}

// processImage runs document text detection over a single photographed page.
func (g *GoogleVisionService) processImage(ctx context.Context, raw []byte) (*Result, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: raw},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, NewOCRError("processImage", ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewOCRError("processImage", ErrOCRFailed, "no response from Vision API")
	}
	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, NewOCRError("processImage", ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}
	if imgResp.FullTextAnnotation == nil || strings.TrimSpace(imgResp.FullTextAnnotation.Text) == "" {
		return nil, ErrEmptyDocument
	}

	var confidenceSum float32
	var confidenceCount int
	for _, annotation := range imgResp.TextAnnotations {
		if annotation.Confidence > 0 {
			confidenceSum += annotation.Confidence
			confidenceCount++
		}
	}
	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	return &Result{
		Text:       imgResp.FullTextAnnotation.Text,
		PageCount:  1,
		Confidence: avgConfidence,
	}, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
