package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	tests := map[string]string{
		"SELECT 1 FROM ledger_events;":                       "SELECT 1 FROM ledger_events",
		"```sql\nSELECT count() FROM ledger_events\n```":     "SELECT count() FROM ledger_events",
		"```\nSELECT * FROM treasury.ledger_events\n```\nok": "SELECT * FROM treasury.ledger_events",
		"sql SELECT 1 FROM ledger_events":                    "SELECT 1 FROM ledger_events",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeSQL(in), in)
	}
}

func TestValidateSQL(t *testing.T) {
	ok := []string{
		"SELECT sum(amount_out_ui) FROM ledger_events WHERE kind = 'swap'",
		"select count() from treasury.ledger_events where status = 'failed'",
	}
	for _, q := range ok {
		assert.NoError(t, validateSQL(q, "treasury"), q)
	}

	bad := map[string]string{
		"":                                      "empty SQL",
		"DROP TABLE ledger_events":              "only SELECT",
		"SELECT 1 FROM ledger_events; SELECT 2": "semicolons",
		"SELECT * FROM system.users":            "must target treasury.ledger_events",
		"SELECT * FROM other.ledger_events":     "must target treasury.ledger_events",
		"SELECT 1 FROM ledger_events WHERE 1 IN (SELECT 1) OR DELETE FROM x": "disallowed SQL keyword",
	}
	for q, want := range bad {
		err := validateSQL(q, "treasury")
		if assert.Error(t, err, q) {
			assert.Contains(t, err.Error(), want, q)
		}
	}
}

func TestEventsSchemaDescription(t *testing.T) {
	d := eventsSchemaDescription("audit")
	assert.Contains(t, d, "Table: audit.ledger_events")
	assert.Contains(t, d, "amount_out_ui")
}

func TestValidateSQL_EveryTableChecked(t *testing.T) {
	assert.NoError(t, validateSQL("SELECT router, count() FROM ledger_events WHERE caller IN (SELECT caller FROM treasury.ledger_events WHERE kind = 'deposit') GROUP BY router", "treasury"))
	assert.NoError(t, validateSQL("SELECT EXTRACT(HOUR FROM timestamp) AS h, count() FROM ledger_events GROUP BY h", "treasury"))

	err := validateSQL("SELECT * FROM ledger_events JOIN system.users ON 1 = 1", "treasury")
	assert.ErrorContains(t, err, "got system.users")
	err = validateSQL("SELECT * FROM ledger_events WHERE caller IN (SELECT name FROM system.users)", "treasury")
	assert.ErrorContains(t, err, "must target")
	assert.ErrorContains(t, validateSQL("   ", "treasury"), "empty SQL")
}

func TestLedgerDescription(t *testing.T) {
	assert.Empty(t, ledgerDescription(LedgerContext{}))

	d := ledgerDescription(LedgerContext{Source: "WETH", Dest: "USDT", Routers: []string{"orca-pools", "rfq"}})
	assert.Contains(t, d, "accepts WETH deposits")
	assert.Contains(t, d, "withdrawals have asset_out = 'USDT'")
	assert.Contains(t, d, "'orca-pools', 'rfq'")
}
