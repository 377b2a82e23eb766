package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tallytools/internal/convert"
	"tallytools/internal/logger"
)

var gstr2bCmd = &cobra.Command{
	Use:   "gstr2b [json-file]",
	Short: "Convert a GSTR2B JSON download into Tally import XML",
	Long: `Convert GST purchase data into a coupled pair of Tally import documents:
a masters file with every vendor and tax ledger the vouchers reference, and a
transactions file with one purchase voucher per invoice.

The input may be an official GSTR2B JSON download from the GST portal, or a
canonical vendor/invoice JSON file; the format is detected automatically.
Invoices that fail validation or cannot be balanced are skipped and reported
in the summary; only an input with no usable records at all fails the run.

Required environment variables:
  COMPANY_NAME - company name exactly as it appears in Tally
  COMPANY_STATE - the company's state, used to split CGST/SGST vs IGST`,
	Example: `  # Convert a GSTR2B download, writing masters.xml and transactions.xml
  tallytools gstr2b GSTR2B_032025.json

  # Write documents to a directory with custom names
  tallytools gstr2b GSTR2B_032025.json --out-dir import --masters ledgers.xml

  # Also write an XLSX invoice register for review
  tallytools gstr2b GSTR2B_032025.json --xlsx register.xlsx

  # Machine-readable summary, fail if anything was skipped
  tallytools gstr2b GSTR2B_032025.json --json --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runGSTR2B,
}

func init() {
	rootCmd.AddCommand(gstr2bCmd)

	gstr2bCmd.Flags().String("out-dir", ".", "Directory for the output documents")
	gstr2bCmd.Flags().String("masters", "masters.xml", "File name for the masters document")
	gstr2bCmd.Flags().String("transactions", "transactions.xml", "File name for the transactions document")
	gstr2bCmd.Flags().String("xlsx", "", "Also write an XLSX invoice register to this path")
	gstr2bCmd.Flags().Bool("json", false, "Print the run summary as JSON")
	gstr2bCmd.Flags().Bool("strict", false, "Exit with an error if any invoice was skipped")
}

func runGSTR2B(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("gstr2b")

	outDir, _ := cmd.Flags().GetString("out-dir")
	mastersName, _ := cmd.Flags().GetString("masters")
	transactionsName, _ := cmd.Flags().GetString("transactions")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	asJSON, _ := cmd.Flags().GetBool("json")
	strict, _ := cmd.Flags().GetBool("strict")

	inputPath := args[0]

	log.Info().
		Str("file", inputPath).
		Str("out_dir", outDir).
		Bool("strict", strict).
		Msg("Starting GSTR2B conversion")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	if _, err := validateInputFile(inputPath, log); err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Error().Err(err).Str("file", inputPath).Msg("Failed to read input file")
		return fmt.Errorf("failed to read input file: %w", err)
	}

	converter := convert.New(convert.Options{
		CompanyName:   cfg.CompanyName,
		HomeStateCode: cfg.HomeStateCode(),
	})

	result, err := converter.Convert(data)
	if err != nil {
		if errors.Is(err, convert.ErrEmptyInput) {
			log.Error().Err(err).Msg("Input contains no usable records")
			return fmt.Errorf("input contains no usable records. Check that the file is a GSTR2B download or canonical vendor/invoice JSON: %w", err)
		}
		log.Error().Err(err).Msg("Conversion failed")
		return fmt.Errorf("conversion failed: %w", err)
	}

	mastersPath, transactionsPath, err := writeConversionResult(result, outDir, mastersName, transactionsName, log)
	if err != nil {
		return err
	}
	if err := writeRegister(result, xlsxPath, log); err != nil {
		return err
	}
	if err := printSummary(result, mastersPath, transactionsPath, asJSON); err != nil {
		return err
	}

	if strict && result.Summary.InvoicesSkipped > 0 {
		return fmt.Errorf("%d invoice(s) skipped in strict mode", result.Summary.InvoicesSkipped)
	}

	return nil
}
