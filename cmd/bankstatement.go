package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"tallytools/internal/extract"
	"tallytools/internal/logger"
	"tallytools/internal/ocr"
	"tallytools/internal/tally"
)

var bankStatementCmd = &cobra.Command{
	Use:   "bankstatement [statement-file]",
	Short: "Convert a scanned bank statement into Tally vouchers",
	Long: `Process a scanned bank statement (PDF, PNG or JPEG) into Tally receipt and
payment vouchers. Text is extracted with Google Cloud Vision OCR, then the
transaction table is parsed by ChatGPT.

Every voucher posts against a Suspense ledger, which is included in the same
document; reclassify the entries to proper ledgers inside Tally after import.

Required environment variables:
  COMPANY_NAME - company name exactly as it appears in Tally
  COMPANY_STATE - the company's state
  BANK_LEDGER_NAME - the bank account ledger in Tally (default "Bank Account")
  OPENAI_API_KEY - OpenAI API key for transaction extraction
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - Google Cloud credentials`,
	Example: `  # Convert a statement PDF to vouchers
  tallytools bankstatement statement.pdf

  # Photographed statement page, custom output file
  tallytools bankstatement statement.png -o april-vouchers.xml

  # Longer timeout for slow OCR
  tallytools bankstatement statement.pdf --timeout 300`,
	Args: cobra.ExactArgs(1),
	RunE: runBankStatement,
}

func init() {
	rootCmd.AddCommand(bankStatementCmd)

	bankStatementCmd.Flags().StringP("output", "o", "bank-vouchers.xml", "Output file for the vouchers document")
	bankStatementCmd.Flags().Int("timeout", 180, "Processing timeout in seconds")
}

func runBankStatement(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("bankstatement")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	statementPath := args[0]

	log.Info().
		Str("file", statementPath).
		Str("output", outputPath).
		Int("timeout", timeoutSecs).
		Msg("Starting bank statement conversion")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	fileInfo, err := validateInputFile(statementPath, log)
	if err != nil {
		return err
	}

	mimeType, err := statementMimeType(statementPath)
	if err != nil {
		log.Error().Err(err).Str("file", statementPath).Msg("Unsupported statement format")
		return err
	}

	ctx, cancel := createRunContext(timeoutSecs, log)
	defer cancel()

	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return fmt.Errorf("missing Google Cloud credentials. Please set one of:\n"+
				"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
				"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
				"Original error: %w", err)
		}
		return fmt.Errorf("failed to create OCR service: %w", err)
	}

	extractor, err := extract.NewChatGPTStatementExtractor()
	if err != nil {
		return fmt.Errorf("failed to create statement extractor: %w", err)
	}

	statementFile, err := os.Open(statementPath)
	if err != nil {
		log.Error().Err(err).Str("file", statementPath).Msg("Failed to open statement file")
		return fmt.Errorf("failed to open statement file: %w", err)
	}
	defer func() {
		if closeErr := statementFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close statement file")
		}
	}()

	log.Info().
		Str("file", statementPath).
		Int64("size", fileInfo.Size()).
		Str("mime_type", mimeType).
		Msg("Extracting text from statement")

	ocrResult, err := ocrService.ProcessDocumentWithMetadata(ctx, statementFile, mimeType)
	if err != nil {
		return handleOCRError(err)
	}

	log.Info().
		Int("text_length", len(ocrResult.Text)).
		Int("pages", ocrResult.PageCount).
		Float32("confidence", ocrResult.Confidence).
		Msg("OCR extraction completed")

	transactions, warnings, err := extractor.ExtractTransactions(ctx, ocrResult.Text)
	if err != nil {
		if errors.Is(err, extract.ErrNoTransactions) {
			return fmt.Errorf("no transactions found in the statement. The document may not be a bank statement, or the scan quality may be too low: %w", err)
		}
		return fmt.Errorf("transaction extraction failed: %w", err)
	}

	emitter := tally.NewBankEmitter(cfg.CompanyName, cfg.BankLedgerName)
	document, skipped, err := emitter.Emit(transactions)
	if err != nil {
		return fmt.Errorf("failed to build vouchers document: %w", err)
	}

	if err := os.WriteFile(outputPath, document, 0644); err != nil {
		log.Error().Err(err).Str("file", outputPath).Msg("Failed to write vouchers document")
		return fmt.Errorf("failed to write vouchers document: %w", err)
	}

	emitted := len(transactions) - skipped
	fmt.Printf("Bank statement conversion complete\n")
	fmt.Printf("  Transactions found: %d\n", len(transactions))
	fmt.Printf("  Vouchers emitted:   %d\n", emitted)
	fmt.Printf("  Rows skipped:       %d\n", skipped)
	fmt.Printf("  Output file:        %s\n", outputPath)
	if len(warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(warnings))
		for _, warning := range warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}
	fmt.Printf("\nAll vouchers post against the %q ledger; reclassify them in Tally after import.\n", tally.SuspenseLedgerName)

	return nil
}

// statementMimeType maps the file extension to a supported MIME type.
func statementMimeType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ocr.MimePDF, nil
	case ".png":
		return ocr.MimePNG, nil
	case ".jpg", ".jpeg":
		return ocr.MimeJPEG, nil
	default:
		return "", fmt.Errorf("unsupported statement format %q (expected .pdf, .png, .jpg)", filepath.Ext(path))
	}
}

// handleOCRError maps OCR failures onto user-facing messages.
func handleOCRError(err error) error {
	switch {
	case errors.Is(err, ocr.ErrDocumentTooLarge):
		return fmt.Errorf("statement file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("statement has too many pages (maximum 5 for synchronous processing). Split the PDF and process the parts separately")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the statement. Check the scan quality")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("document format not supported or corrupted: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
