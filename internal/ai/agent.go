package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultModel      = "openai/gpt-4.1-mini"
	defaultMaxRows    = 100
	maxQuestionLen    = 500
)

var ErrInvalidQuestion = errors.New("invalid question")

// LedgerContext names the ledger the journal belongs to, so generated
// queries can filter on the right symbols and routers.
type LedgerContext struct {
	Source  string   // source asset symbol
	Dest    string   // destination asset symbol
	Routers []string // router names as written to the journal
}

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Ledger LedgerContext
	// MaxRows caps how many result rows are handed to the model for the
	// answer. Defaults to 100.
	MaxRows int

	Logger *logrus.Logger
}

// Agent answers questions about the ledger event journal: the model writes
// a SELECT over ledger_events, the agent runs it and the model summarises
// the rows.
type Agent struct {
	cfg    AgentConfig
	llm    llms.Model
	db     *sql.DB
	ownsDB bool
	logger *logrus.Logger
}

// AskResult is the structured result of an Ask call.
type AskResult struct {
	SQL       string
	Answer    string
	Rows      int
	Truncated bool
}

// NewAgent connects to ClickHouse and the model.
func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is required")
	}
	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = "treasury"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}

	llm, err := newLLM(cfg)
	if err != nil {
		return nil, err
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
		"pair":     cfg.Ledger.Source + "/" + cfg.Ledger.Dest,
	}).Info("initialized AI agent")

	return &Agent{cfg: cfg, llm: llm, db: db, ownsDB: true, logger: cfg.Logger}, nil
}

func newLLM(cfg AgentConfig) (llms.Model, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(openRouterBaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}
	return llm, nil
}

// WithModel returns an agent asking a different model over the same
// ClickHouse connection. Closing it does not close the connection.
func (a *Agent) WithModel(model string) (*Agent, error) {
	model = strings.TrimSpace(model)
	if model == "" || model == a.cfg.Model {
		return a, nil
	}
	cfg := a.cfg
	cfg.Model = model
	llm, err := newLLM(cfg)
	if err != nil {
		return nil, err
	}
	return &Agent{cfg: cfg, llm: llm, db: a.db, logger: a.logger}, nil
}

// Model reports the model this agent asks.
func (a *Agent) Model() string { return a.cfg.Model }

func (a *Agent) Close() error {
	if a.db == nil || !a.ownsDB {
		return nil
	}
	a.logger.Debug("closing AI agent ClickHouse connection")
	return a.db.Close()
}

// Ask answers question from the journal.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidQuestion)
	}
	if len(question) > maxQuestionLen {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidQuestion, maxQuestionLen)
	}

	sqlQuery, err := a.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}

	rows, truncated, err := a.runQuery(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}

	answer, err := a.summariseResult(ctx, question, sqlQuery, string(rowsJSON), truncated)
	if err != nil {
		return nil, err
	}

	return &AskResult{SQL: sqlQuery, Answer: answer, Rows: len(rows), Truncated: truncated}, nil
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithMaxTokens(512))
}

func (a *Agent) generateSQL(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`
You write ClickHouse SQL for the journal of a custodial treasury.

Use ONLY the following table:
%s
%s
Rules:
- Return a single SELECT query in ClickHouse SQL, with no explanation and no comments.
- Read only from %s.ledger_events; subqueries over the same table are fine.
- Use timestamp for time filtering.
- Filter on status = 'ok' unless the question is about failures.
- Use aggregate functions like sum, avg, count when appropriate.
- If the question asks for "top" or "biggest", use ORDER BY ... DESC and LIMIT.
- Never modify data.

Question:
%s
`, eventsSchemaDescription(a.cfg.ClickHouseDatabase), ledgerDescription(a.cfg.Ledger), a.cfg.ClickHouseDatabase, question)

	resp, err := a.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	sqlQuery := sanitizeSQL(resp)
	if err := validateSQL(sqlQuery, a.cfg.ClickHouseDatabase); err != nil {
		a.logger.WithError(err).WithField("sql", sqlQuery).Warn("rejected generated SQL")
		return "", err
	}

	a.logger.WithField("sql", sqlQuery).Debug("generated SQL from question")
	return sqlQuery, nil
}

// runQuery executes sqlQuery and returns at most MaxRows rows.
func (a *Agent) runQuery(ctx context.Context, sqlQuery string) ([]map[string]any, bool, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get columns: %w", err)
	}

	out := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(out) == a.cfg.MaxRows {
			truncated = true
			break
		}
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, false, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("row iteration error: %w", err)
	}
	return out, truncated, nil
}

func (a *Agent) summariseResult(ctx context.Context, question, sqlQuery, rowsJSON string, truncated bool) (string, error) {
	note := ""
	if truncated {
		note = fmt.Sprintf("\nOnly the first %d rows are shown; say so if it matters for the answer.\n", a.cfg.MaxRows)
	}
	prompt := fmt.Sprintf(`
You explain the activity of a custodial treasury that accepts deposits of one
token, swaps them into another through one of two routers and pays the
proceeds out to its owner.
%s
Question:
%s

SQL that was executed:
%s

Rows as JSON (may be empty):
%s
%s
Instructions:
- If there are no rows, say that no data was found for the question.
- Otherwise answer concisely in bullet points, with amounts in whole token units and the token symbol.
- Do not restate the raw JSON.
`, ledgerDescription(a.cfg.Ledger), question, sqlQuery, rowsJSON, note)

	resp, err := a.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM summarisation failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

// sanitizeSQL strips code fences, a leading "sql" tag and a trailing
// semicolon from model output.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s, _, _ = strings.Cut(rest, "```")
		s = strings.TrimSpace(s)
	}
	if len(s) > 3 && strings.EqualFold(s[:3], "sql") && strings.ContainsRune(" \t\r\n", rune(s[3])) {
		s = strings.TrimSpace(s[3:])
	}
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

var disallowedKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true, "ALTER": true,
	"TRUNCATE": true, "CREATE": true, "RENAME": true, "ATTACH": true, "DETACH": true,
	"OPTIMIZE": true, "GRANT": true, "SYSTEM": true, "KILL": true,
}

// validateSQL accepts a single read-only SELECT whose every FROM and JOIN
// names the journal table, bare or qualified with database.
func validateSQL(s, database string) error {
	upper := strings.ToUpper(s)
	words := strings.Fields(upper)
	if len(words) == 0 {
		return errors.New("empty SQL generated by LLM")
	}

	if words[0] != "SELECT" && !strings.HasPrefix(words[0], "SELECT(") {
		return fmt.Errorf("only SELECT queries are allowed, got: %s", words[0])
	}
	if strings.Contains(s, ";") {
		return errors.New("multiple statements or semicolons are not allowed")
	}
	for _, w := range words {
		if kw := strings.Trim(w, "(),"); disallowedKeywords[kw] {
			return fmt.Errorf("disallowed SQL keyword %q in generated query", kw)
		}
	}

	table := "LEDGER_EVENTS"
	qualified := strings.ToUpper(database) + "." + table
	found := false
	for i, w := range words {
		if (w != "FROM" && w != "JOIN") || i+1 == len(words) {
			continue
		}
		next := words[i+1]
		if strings.HasPrefix(next, "(") {
			continue
		}
		next = strings.TrimRight(next, "),")
		if next == "TIMESTAMP" {
			// EXTRACT(HOUR FROM timestamp)
			continue
		}
		if next != table && next != qualified {
			return fmt.Errorf("query must target %s.ledger_events table, got %s", database, strings.ToLower(next))
		}
		found = true
	}
	if !found {
		return fmt.Errorf("query must target %s.ledger_events table", database)
	}
	return nil
}
