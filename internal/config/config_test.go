package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("COMPANY_NAME", "Test Co")
	t.Setenv("COMPANY_STATE", "Maharashtra")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Test Co", cfg.CompanyName)
	assert.Equal(t, "Maharashtra", cfg.CompanyState)
	assert.Equal(t, "27", cfg.HomeStateCode())
	assert.Equal(t, "Bank Account", cfg.BankLedgerName, "default bank ledger name")
	assert.Equal(t, "info", cfg.LogLevel)

	logCfg := cfg.GetLoggerConfig()
	assert.Equal(t, "info", logCfg.Level)
	assert.Equal(t, "console", logCfg.Format)
}

func TestLoadMissingCompanyName(t *testing.T) {
	t.Setenv("COMPANY_NAME", "")
	t.Setenv("COMPANY_STATE", "Maharashtra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPANY_NAME")
}

func TestLoadMissingCompanyState(t *testing.T) {
	t.Setenv("COMPANY_NAME", "Test Co")
	t.Setenv("COMPANY_STATE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPANY_STATE")
}

func TestLoadUnknownCompanyState(t *testing.T) {
	t.Setenv("COMPANY_NAME", "Test Co")
	t.Setenv("COMPANY_STATE", "Atlantis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMPANY_NAME", "Test Co")
	t.Setenv("COMPANY_STATE", "karnataka")
	t.Setenv("BANK_LEDGER_NAME", "HDFC Bank")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "29", cfg.HomeStateCode(), "state name matching is case-insensitive")
	assert.Equal(t, "HDFC Bank", cfg.BankLedgerName)
	assert.Equal(t, "debug", cfg.LogLevel)
}
