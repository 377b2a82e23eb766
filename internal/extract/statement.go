package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"tallytools/internal/gst"
	"tallytools/internal/logger"
	"tallytools/pkg/models"
)

// StatementExtractor turns OCR text from a bank statement into structured
// transaction rows.
type StatementExtractor interface {
	// ExtractTransactions parses statement text into transaction rows,
	// in statement order. Rows the model cannot read cleanly are dropped
	// and reported in the returned warnings.
	ExtractTransactions(ctx context.Context, statementText string) ([]models.BankTransaction, []string, error)
}

// StatementConfig configures the statement extraction service.
type StatementConfig struct {
	OpenAIModel string  // gpt-4o, gpt-4o-mini
	Temperature float32 // sampling temperature
	MaxRetries  int     // retry attempts on malformed responses
}

// ChatGPTStatementExtractor implements StatementExtractor using the OpenAI
// chat completion API.
type ChatGPTStatementExtractor struct {
	client *openai.Client
	config StatementConfig
	log    zerolog.Logger
}

// statementRow is the wire shape the model is asked to return. All fields
// are strings; banks format dates and amounts too inconsistently to trust
// the model with typed output.
type statementRow struct {
	Date      string `json:"date"`
	Narration string `json:"narration"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Balance   string `json:"balance"`
	Reference string `json:"reference"`
}

type statementResponse struct {
	Transactions []statementRow `json:"transactions"`
}

// NewChatGPTStatementExtractor creates an extractor with configuration from
// the environment. OPENAI_API_KEY is required.
func NewChatGPTStatementExtractor() (StatementExtractor, error) {
	const op = "NewChatGPTStatementExtractor"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "OPENAI_API_KEY environment variable is required")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	config := StatementConfig{
		OpenAIModel: model,
		Temperature: 0.1,
		MaxRetries:  3,
	}

	return NewChatGPTStatementExtractorWithDeps(openai.NewClient(apiKey), config), nil
}

// NewChatGPTStatementExtractorWithDeps creates an extractor with explicit
// dependencies (for testing).
func NewChatGPTStatementExtractorWithDeps(client *openai.Client, config StatementConfig) StatementExtractor {
	return &ChatGPTStatementExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("statement-extractor"),
	}
}

// ExtractTransactions sends the statement text to the model and parses the
// JSON rows it returns.
func (e *ChatGPTStatementExtractor) ExtractTransactions(ctx context.Context, statementText string) ([]models.BankTransaction, []string, error) {
	const op = "ExtractTransactions"

	if strings.TrimSpace(statementText) == "" {
		return nil, nil, WrapExtractionError(op, ErrInvalidDocument, "empty statement text")
	}

	e.log.Info().
		Int("text_length", len(statementText)).
		Str("model", e.config.OpenAIModel).
		Msg("Starting statement extraction")

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.config.OpenAIModel,
			Temperature: e.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: statementSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildStatementPrompt(statementText),
				},
			},
			MaxTokens: 4000,
		})
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("ChatGPT request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices from ChatGPT")
			continue
		}

		content := stripCodeFence(resp.Choices[0].Message.Content)

		var parsed statementResponse
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			lastErr = fmt.Errorf("failed to parse ChatGPT JSON response: %w", err)
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Failed to parse ChatGPT response, retrying")
			continue
		}

		transactions, warnings := e.convertRows(parsed.Transactions)
		if len(transactions) == 0 {
			return nil, warnings, WrapExtractionError(op, ErrNoTransactions, fmt.Sprintf("%d rows returned, none usable", len(parsed.Transactions)))
		}

		e.log.Info().
			Int("transactions", len(transactions)).
			Int("warnings", len(warnings)).
			Int("attempt", attempt).
			Msg("Statement extraction completed")

		return transactions, warnings, nil
	}

	return nil, nil, WrapExtractionError(op, ErrInvalidResponse, fmt.Sprintf("all %d attempts failed: %v", e.config.MaxRetries, lastErr))
}

// convertRows parses the model's string rows into typed transactions.
// Unparseable rows become warnings instead of failing the extraction.
func (e *ChatGPTStatementExtractor) convertRows(rows []statementRow) ([]models.BankTransaction, []string) {
	var transactions []models.BankTransaction
	var warnings []string

	for i, row := range rows {
		date, err := parseStatementDate(row.Date)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d dropped: %v", i+1, err))
			continue
		}

		debit, err := parseStatementAmount(row.Debit)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d dropped: debit: %v", i+1, err))
			continue
		}
		credit, err := parseStatementAmount(row.Credit)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d dropped: credit: %v", i+1, err))
			continue
		}
		if debit == 0 && credit == 0 {
			warnings = append(warnings, fmt.Sprintf("row %d dropped: no debit or credit amount", i+1))
			continue
		}
		if debit > 0 && credit > 0 {
			warnings = append(warnings, fmt.Sprintf("row %d dropped: both debit and credit set", i+1))
			continue
		}

		// Balance is informational, a parse failure is not fatal.
		balance, err := parseStatementAmount(row.Balance)
		if err != nil {
			balance = 0
		}

		transactions = append(transactions, models.BankTransaction{
			Date:      date,
			Narration: strings.TrimSpace(row.Narration),
			Debit:     debit,
			Credit:    credit,
			Balance:   balance,
			Reference: strings.TrimSpace(row.Reference),
		})
	}

	return transactions, warnings
}

const statementSystemPrompt = `You are a bank statement parser for Indian bank statements. You receive raw OCR text from a scanned statement and return the transaction table as JSON.

Rules:
- Return ONLY valid JSON, no text before or after, no markdown fences.
- Output shape: {"transactions": [{"date": "...", "narration": "...", "debit": "...", "credit": "...", "balance": "...", "reference": "..."}]}
- Keep rows in statement order.
- date: as printed on the statement (e.g. "01-04-2025" or "01/04/2025").
- narration: the full transaction description, merged if it spans lines.
- debit: amount withdrawn, empty string if none. credit: amount deposited, empty string if none. Never put the same amount in both.
- balance: running balance if the statement shows one, empty string otherwise.
- reference: cheque or transaction reference number, empty string if none.
- Amounts as printed, e.g. "1,23,456.78". Do not convert or round.
- Skip header rows, opening balance lines, page totals and footers.`

func buildStatementPrompt(statementText string) string {
	var prompt strings.Builder
	prompt.WriteString("Extract all transactions from this bank statement:\n\n")
	prompt.WriteString(statementText)
	prompt.WriteString("\n\nReturn only the JSON object.")
	return prompt.String()
}

// stripCodeFence removes a markdown code fence around a JSON payload.
// Models sometimes wrap output in ```json fences despite instructions.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var statementDateFormats = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"02 Jan 2006",
	"02-Jan-2006",
}

func parseStatementDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, format := range statementDateFormats {
		if date, err := time.Parse(format, trimmed); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", value)
}

// parseStatementAmount parses an Indian-format amount string ("1,23,456.78")
// into paise. Empty strings parse to zero.
func parseStatementAmount(value string) (int64, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "-" {
		return 0, nil
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "₹", "")
	cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "Rs."))
	cleaned = strings.TrimSuffix(cleaned, "Cr")
	cleaned = strings.TrimSuffix(cleaned, "Dr")
	cleaned = strings.TrimSpace(cleaned)

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse amount %q", value)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %q", value)
	}
	return gst.Paise(amount), nil
}
