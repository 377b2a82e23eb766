package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tallytools/internal/convert"
	"tallytools/internal/extract"
	"tallytools/internal/gst"
	"tallytools/internal/logger"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice [pdf-file]",
	Short: "Convert a scanned purchase invoice into Tally import XML",
	Long: `Process a single purchase invoice PDF with Google Document AI and convert
it into the same coupled masters/transactions documents the gstr2b command
produces: a vendor ledger, the tax ledgers the invoice needs, and one
purchase voucher.

The supplier's GSTIN decides the tax regime: a supplier in the company's own
state splits tax into CGST and SGST, any other state posts IGST.

Required environment variables:
  COMPANY_NAME - company name exactly as it appears in Tally
  COMPANY_STATE - the company's state
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - Document AI invoice processor ID
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - credentials`,
	Example: `  # Convert a scanned invoice, writing masters.xml and transactions.xml
  tallytools invoice invoice.pdf

  # Write documents to a directory, JSON summary
  tallytools invoice invoice.pdf --out-dir import --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoice,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.Flags().String("out-dir", ".", "Directory for the output documents")
	invoiceCmd.Flags().String("masters", "masters.xml", "File name for the masters document")
	invoiceCmd.Flags().String("transactions", "transactions.xml", "File name for the transactions document")
	invoiceCmd.Flags().Bool("json", false, "Print the run summary as JSON")
	invoiceCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runInvoice(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	outDir, _ := cmd.Flags().GetString("out-dir")
	mastersName, _ := cmd.Flags().GetString("masters")
	transactionsName, _ := cmd.Flags().GetString("transactions")
	asJSON, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("out_dir", outDir).
		Int("timeout", timeoutSecs).
		Msg("Starting invoice conversion")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	fileInfo, err := validateInputFile(pdfPath, log)
	if err != nil {
		return err
	}
	if fileInfo.Size() > extract.MaxDocumentSizeBytes {
		return fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), extract.MaxDocumentSizeBytes)
	}

	ctx, cancel := createRunContext(timeoutSecs, log)
	defer cancel()

	extractor, err := extract.NewDocumentAIInvoiceExtractor(ctx, cfg.HomeStateCode())
	if err != nil {
		return handleExtractorError(err)
	}

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		log.Error().Err(err).Str("file", pdfPath).Msg("Failed to open PDF file")
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := pdfFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	log.Info().
		Str("file", pdfPath).
		Int64("size", fileInfo.Size()).
		Msg("Processing invoice PDF with Document AI")

	vendor, invoiceRecord, err := extractor.ExtractInvoice(ctx, pdfFile)
	if err != nil {
		return handleExtractorError(err)
	}

	converter := convert.New(convert.Options{
		CompanyName:   cfg.CompanyName,
		HomeStateCode: cfg.HomeStateCode(),
	})

	result, err := converter.ConvertRecords(&gst.ConversionInput{
		Vendors:  []gst.VendorRecord{*vendor},
		Invoices: []gst.InvoiceRecord{*invoiceRecord},
	})
	if err != nil {
		log.Error().Err(err).Msg("Conversion failed")
		return fmt.Errorf("conversion failed: %w", err)
	}

	mastersPath, transactionsPath, err := writeConversionResult(result, outDir, mastersName, transactionsName, log)
	if err != nil {
		return err
	}

	return printSummary(result, mastersPath, transactionsPath, asJSON)
}

// handleExtractorError maps extraction failures onto user-facing messages.
func handleExtractorError(err error) error {
	switch {
	case errors.Is(err, extract.ErrMissingCredentials):
		return fmt.Errorf("missing Google Cloud credentials. Please set one of:\n"+
			"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
			"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
			"Original error: %w", err)
	case errors.Is(err, extract.ErrInvalidConfiguration):
		return fmt.Errorf("invalid Document AI configuration. Please check your .env file:\n"+
			"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
			"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
			"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n"+
			"Original error: %w", err)
	case errors.Is(err, extract.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check DOCUMENT_AI_PROCESSOR_ID")
	case errors.Is(err, extract.ErrQuotaExceeded):
		return fmt.Errorf("Document AI API quota exceeded. Check your project quotas in Google Cloud Console")
	case errors.Is(err, extract.ErrInvalidDocument):
		return fmt.Errorf("could not extract a usable invoice from the PDF: %w", err)
	default:
		return fmt.Errorf("invoice extraction failed: %w", err)
	}
}
