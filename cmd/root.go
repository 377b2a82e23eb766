package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"tallytools/internal/config"
	"tallytools/internal/convert"
	"tallytools/internal/logger"
	"tallytools/internal/report"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "tallytools",
	Short: "Tally Tools CLI - convert GST data and bank statements into Tally import XML",
	Long: `Tally Tools CLI converts GST purchase data and scanned bank statements
into Tally ERP import documents.

The gstr2b command turns a GSTR2B JSON download (or a canonical vendor/invoice
JSON file) into a coupled pair of import documents: ledger masters and purchase
vouchers. Import the masters file into Tally first, then the transactions file.

The bankstatement and invoice commands use Google Cloud OCR and AI extraction
to process scanned documents into the same import formats.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Tally Tools CLI executed")

		fmt.Println("Welcome to Tally Tools CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

// validateInputFile checks that path is a readable, non-empty regular file.
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", path).
				Msg("Input file not found")
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", path).
				Msg("Permission denied accessing input file")
			return nil, fmt.Errorf("permission denied accessing input file: %s", path)
		}
		return nil, fmt.Errorf("error accessing input file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", path).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", path).
			Msg("Input file is empty")
		return nil, fmt.Errorf("input file is empty: %s", path)
	}

	return fileInfo, nil
}

// createRunContext creates a context with timeout and interrupt handling.
func createRunContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// loadConfig loads and validates application configuration.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Configuration invalid")
		return nil, fmt.Errorf("invalid configuration. Please check your .env file:\n"+
			"  COMPANY_NAME - company name exactly as it appears in Tally\n"+
			"  COMPANY_STATE - the company's state, e.g. Maharashtra\n"+
			"Original error: %w", err)
	}
	return cfg, nil
}

// writeConversionResult writes both import documents to outDir. Masters
// first; the transactions file is only useful once the masters are imported.
func writeConversionResult(result *convert.Result, outDir, mastersName, transactionsName string, log zerolog.Logger) (string, string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	mastersPath := filepath.Join(outDir, mastersName)
	if err := os.WriteFile(mastersPath, result.MastersXML, 0644); err != nil {
		log.Error().Err(err).Str("file", mastersPath).Msg("Failed to write masters document")
		return "", "", fmt.Errorf("failed to write masters document: %w", err)
	}

	transactionsPath := filepath.Join(outDir, transactionsName)
	if err := os.WriteFile(transactionsPath, result.TransactionsXML, 0644); err != nil {
		log.Error().Err(err).Str("file", transactionsPath).Msg("Failed to write transactions document")
		return "", "", fmt.Errorf("failed to write transactions document: %w", err)
	}

	log.Info().
		Str("masters", mastersPath).
		Str("transactions", transactionsPath).
		Msg("Wrote import documents")

	return mastersPath, transactionsPath, nil
}

// writeRegister writes the optional XLSX invoice register.
func writeRegister(result *convert.Result, path string, log zerolog.Logger) error {
	if path == "" {
		return nil
	}
	if err := report.NewRegisterWriter().Write(result, path); err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to write invoice register")
		return fmt.Errorf("failed to write invoice register: %w", err)
	}
	return nil
}

// printSummary prints the run summary, as indented JSON or console text.
func printSummary(result *convert.Result, mastersPath, transactionsPath string, asJSON bool) error {
	if asJSON {
		out := struct {
			convert.Summary
			MastersFile      string `json:"masters_file"`
			TransactionsFile string `json:"transactions_file"`
		}{
			Summary:          result.Summary,
			MastersFile:      mastersPath,
			TransactionsFile: transactionsPath,
		}
		jsonData, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	s := result.Summary
	fmt.Printf("Conversion complete (run %s)\n", s.RunID)
	fmt.Printf("  Company:           %s\n", s.CompanyName)
	fmt.Printf("  Vendor ledgers:    %d\n", s.VendorLedgers)
	fmt.Printf("  Tax ledgers:       %d\n", s.TaxLedgers)
	fmt.Printf("  Invoices parsed:   %d\n", s.InvoicesParsed)
	fmt.Printf("  Invoices emitted:  %d\n", s.InvoicesEmitted)
	fmt.Printf("  Invoices skipped:  %d\n", s.InvoicesSkipped)
	fmt.Printf("  Masters file:      %s\n", mastersPath)
	fmt.Printf("  Transactions file: %s\n", transactionsPath)
	if len(s.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(s.Warnings))
		for _, warning := range s.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}
	fmt.Println("\nImport the masters file into Tally before the transactions file.")
	return nil
}
