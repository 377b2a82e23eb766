package config

import (
	"fmt"
	"os"

	"tallytools/internal/gst"
	"tallytools/internal/logger"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// CompanyName must match the company open in Tally exactly, or the
	// import is silently ignored.
	CompanyName string

	// CompanyState is the company's registered state name, e.g.
	// "Maharashtra". It decides the intra- vs inter-state tax regime.
	CompanyState string

	// BankLedgerName is the bank account ledger used by bank statement
	// vouchers.
	BankLedgerName string

	// OpenAIAPIKey authenticates bank statement extraction. Validated by
	// the extraction service, not here, so pure conversions need no key.
	OpenAIAPIKey string

	// Google Cloud settings for OCR and invoice extraction. Validated by
	// the services that use them.
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		CompanyName:           os.Getenv("COMPANY_NAME"),
		CompanyState:          os.Getenv("COMPANY_STATE"),
		BankLedgerName:        getEnv("BANK_LEDGER_NAME", "Bank Account"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		GoogleCloudProject:    os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "15:04:05"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.CompanyName == "" {
		return fmt.Errorf("COMPANY_NAME environment variable is required")
	}
	if c.CompanyState == "" {
		return fmt.Errorf("COMPANY_STATE environment variable is required")
	}
	if _, ok := gst.StateCodeForName(c.CompanyState); !ok {
		return fmt.Errorf("COMPANY_STATE %q is not a recognized state name", c.CompanyState)
	}
	return nil
}

// HomeStateCode returns the two-digit GST state code for the company's
// state. Load guarantees the lookup succeeds.
func (c *Config) HomeStateCode() string {
	code, _ := gst.StateCodeForName(c.CompanyState)
	return code
}

// GetLoggerConfig converts the logging settings into a logger.LogConfig.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
