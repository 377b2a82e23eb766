// Package extract turns unstructured documents into the typed records the
// conversion pipeline consumes: bank statement text into transaction rows
// via ChatGPT, and scanned purchase invoices into vendor/invoice records via
// Google Document AI.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"tallytools/internal/gst"
	"tallytools/internal/logger"
)

// MaxDocumentSizeBytes is the maximum invoice size for processing (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// InvoiceExtractor extracts purchase invoice records from scanned PDFs.
type InvoiceExtractor interface {
	// ExtractInvoice processes one invoice PDF into a vendor record and
	// an invoice record ready for conversion.
	ExtractInvoice(ctx context.Context, pdfData io.Reader) (*gst.VendorRecord, *gst.InvoiceRecord, error)
}

// InvoiceConfig configures the Document AI invoice extractor.
type InvoiceConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string

	// HomeStateCode decides the CGST/SGST vs IGST split when the invoice
	// itself does not name its tax components.
	HomeStateCode string

	Timeout time.Duration
}

// DocumentAIInvoiceExtractor implements InvoiceExtractor using Google
// Document AI's invoice processor.
type DocumentAIInvoiceExtractor struct {
	client *documentai.DocumentProcessorClient
	config InvoiceConfig
	log    zerolog.Logger
}

// NewDocumentAIInvoiceExtractor creates an extractor with credentials from
// the environment. Requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID.
func NewDocumentAIInvoiceExtractor(ctx context.Context, homeStateCode string) (InvoiceExtractor, error) {
	const op = "NewDocumentAIInvoiceExtractor"

	config := InvoiceConfig{
		ProjectID:     os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:      os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID:   os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		HomeStateCode: homeStateCode,
		Timeout:       60 * time.Second,
	}

	if config.ProjectID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location %s", config.Location))
	}

	return &DocumentAIInvoiceExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("invoice-extractor"),
	}, nil
}

// NewDocumentAIInvoiceExtractorWithConfig creates an extractor with explicit
// config and client (for testing).
func NewDocumentAIInvoiceExtractorWithConfig(config InvoiceConfig, client *documentai.DocumentProcessorClient) InvoiceExtractor {
	return &DocumentAIInvoiceExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("invoice-extractor"),
	}
}

// ExtractInvoice processes one invoice PDF through Document AI.
func (p *DocumentAIInvoiceExtractor) ExtractInvoice(ctx context.Context, pdfData io.Reader) (*gst.VendorRecord, *gst.InvoiceRecord, error) {
	const op = "ExtractInvoice"

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, nil, WrapExtractionError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxDocumentSizeBytes {
		return nil, nil, WrapExtractionError(op, ErrInvalidDocument, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, nil, WrapExtractionError(op, ErrInvalidDocument, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, nil, p.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, nil, WrapExtractionError(op, ErrProcessingFailed, "no document in response")
	}

	return p.extractRecords(resp.Document)
}

func (p *DocumentAIInvoiceExtractor) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// handleProcessingError maps Document AI errors onto extraction errors.
func (p *DocumentAIInvoiceExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapExtractionError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return WrapExtractionError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapExtractionError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapExtractionError(op, ErrInvalidDocument, "document format not supported or corrupted")
	default:
		return WrapExtractionError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// extractRecords converts Document AI entities into conversion records.
func (p *DocumentAIInvoiceExtractor) extractRecords(doc *documentaipb.Document) (*gst.VendorRecord, *gst.InvoiceRecord, error) {
	const op = "extractRecords"

	vendor := &gst.VendorRecord{}
	invoice := &gst.InvoiceRecord{
		Components: make(map[gst.TaxType]int64),
	}
	var taxTotal int64

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)

		p.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", value).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "invoice_id", "invoice_number":
			invoice.Number = value
		case "supplier_name", "vendor_name":
			vendor.LegalName = value
		case "supplier_tax_id", "supplier_gst_number":
			vendor.GSTIN = gst.NormalizeGSTIN(value)
		case "invoice_date":
			if date, err := p.extractDate(entity); err == nil {
				invoice.Date = date
			}
		case "net_amount", "subtotal_amount":
			if amount, err := p.extractMoneyValue(entity); err == nil {
				invoice.TaxableValue = amount
			}
		case "total_tax_amount", "vat_amount":
			if amount, err := p.extractMoneyValue(entity); err == nil {
				taxTotal = amount
			}
		case "total_amount", "gross_amount":
			if amount, err := p.extractMoneyValue(entity); err == nil {
				invoice.TotalValue = amount
			}
		}
	}

	if !gst.ValidGSTIN(vendor.GSTIN) {
		if fallback := findGSTINInText(doc.Text); fallback != "" {
			vendor.GSTIN = fallback
			p.log.Info().Str("gstin", fallback).Msg("GSTIN extracted from full text fallback")
		}
	}
	if !gst.ValidGSTIN(vendor.GSTIN) {
		return nil, nil, WrapExtractionError(op, ErrInvalidDocument, "no valid supplier GSTIN found")
	}
	vendor.StateCode = vendor.GSTIN[:2]
	if vendor.LegalName == "" {
		vendor.LegalName = vendor.GSTIN
	}
	if invoice.Number == "" {
		return nil, nil, WrapExtractionError(op, ErrInvalidDocument, "no invoice number found")
	}
	if invoice.Date.IsZero() {
		return nil, nil, WrapExtractionError(op, ErrInvalidDocument, "no invoice date found")
	}

	// Fill amounts the processor missed where two of the three are known.
	if invoice.TotalValue == 0 && invoice.TaxableValue > 0 {
		invoice.TotalValue = invoice.TaxableValue + taxTotal
	}
	if invoice.TaxableValue == 0 && invoice.TotalValue > 0 {
		invoice.TaxableValue = invoice.TotalValue - taxTotal
	}
	if taxTotal == 0 {
		taxTotal = invoice.TotalValue - invoice.TaxableValue
	}

	p.assignComponents(doc.Text, invoice, vendor, taxTotal)
	invoice.VendorKey = vendor.Key()
	invoice.PlaceOfSupply = vendor.StateCode

	p.log.Info().
		Str("invoice", invoice.Number).
		Str("vendor", vendor.LegalName).
		Str("gstin", vendor.GSTIN).
		Str("taxable", gst.Rupees(invoice.TaxableValue)).
		Str("total", gst.Rupees(invoice.TotalValue)).
		Msg("Invoice extraction completed")

	return vendor, invoice, nil
}

// assignComponents fills the invoice tax components: from printed CGST/SGST/
// IGST amounts when the invoice names them, otherwise split by the supplier
// state against the home state.
func (p *DocumentAIInvoiceExtractor) assignComponents(text string, invoice *gst.InvoiceRecord, vendor *gst.VendorRecord, taxTotal int64) {
	if cgst, sgst, igst, found := findTaxComponents(text); found {
		if cgst > 0 {
			invoice.Components[gst.TaxCGST] = cgst
		}
		if sgst > 0 {
			invoice.Components[gst.TaxSGST] = sgst
		}
		if igst > 0 {
			invoice.Components[gst.TaxIGST] = igst
		}
		return
	}

	if taxTotal <= 0 {
		return
	}
	if vendor.StateCode == p.config.HomeStateCode {
		half := taxTotal / 2
		invoice.Components[gst.TaxCGST] = half
		invoice.Components[gst.TaxSGST] = taxTotal - half
	} else {
		invoice.Components[gst.TaxIGST] = taxTotal
	}
}

var gstinInText = regexp.MustCompile(`\b[0-9]{2}[A-Z0-9]{13}\b`)

// findGSTINInText scans the full OCR text for a GSTIN-shaped token.
func findGSTINInText(text string) string {
	for _, candidate := range gstinInText.FindAllString(strings.ToUpper(text), -1) {
		if gst.ValidGSTIN(candidate) {
			return candidate
		}
	}
	return ""
}

// Each pattern optionally skips a printed rate ("@9%", "18 %") so the
// capture lands on the amount, which invoices print with decimals.
var taxComponentPatterns = map[gst.TaxType]*regexp.Regexp{
	gst.TaxCGST: regexp.MustCompile(`(?i)\bCGST\b(?:[^0-9]{0,10}[0-9.]+\s*%)?[^0-9]{0,20}([0-9,]+\.[0-9]{1,2})`),
	gst.TaxSGST: regexp.MustCompile(`(?i)\bSGST\b(?:[^0-9]{0,10}[0-9.]+\s*%)?[^0-9]{0,20}([0-9,]+\.[0-9]{1,2})`),
	gst.TaxIGST: regexp.MustCompile(`(?i)\bIGST\b(?:[^0-9]{0,10}[0-9.]+\s*%)?[^0-9]{0,20}([0-9,]+\.[0-9]{1,2})`),
}

// findTaxComponents searches the OCR text for printed tax component amounts.
func findTaxComponents(text string) (cgst, sgst, igst int64, found bool) {
	amounts := make(map[gst.TaxType]int64)
	for taxType, pattern := range taxComponentPatterns {
		if matches := pattern.FindStringSubmatch(text); len(matches) > 1 {
			if amount, err := parseStatementAmount(matches[1]); err == nil && amount > 0 {
				amounts[taxType] = amount
			}
		}
	}
	if len(amounts) == 0 {
		return 0, 0, 0, false
	}
	return amounts[gst.TaxCGST], amounts[gst.TaxSGST], amounts[gst.TaxIGST], true
}

// extractDate pulls a date from an entity, preferring the normalized value.
func (p *DocumentAIInvoiceExtractor) extractDate(entity *documentaipb.Document_Entity) (time.Time, error) {
	if entity.NormalizedValue != nil {
		if dateValue := entity.NormalizedValue.GetDateValue(); dateValue != nil {
			return time.Date(
				int(dateValue.Year),
				time.Month(dateValue.Month),
				int(dateValue.Day),
				0, 0, 0, 0,
				time.UTC,
			), nil
		}
	}

	dateStr := strings.TrimSpace(entity.MentionText)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	formats := []string{
		"02-01-2006",
		"02/01/2006",
		"2006-01-02",
		"02 Jan 2006",
		"2 January 2006",
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// extractMoneyValue pulls an amount in paise, preferring the normalized
// money value.
func (p *DocumentAIInvoiceExtractor) extractMoneyValue(entity *documentaipb.Document_Entity) (int64, error) {
	if entity.NormalizedValue != nil {
		if moneyValue := entity.NormalizedValue.GetMoneyValue(); moneyValue != nil {
			return moneyValue.Units*100 + int64(moneyValue.Nanos)/10000000, nil
		}
	}

	amountStr := strings.TrimSpace(entity.MentionText)
	if amountStr == "" {
		return 0, fmt.Errorf("empty amount value")
	}
	return parseStatementAmount(amountStr)
}

// Close closes the underlying Document AI client.
func (p *DocumentAIInvoiceExtractor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
