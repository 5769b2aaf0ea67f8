package cache

import (
	"strings"
	"testing"

	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRowMatchesColumns(t *testing.T) {
	ev := testEvent(3, models.EventSwap)
	ev.Router = "rfq"
	ev.AssetOut = "USDT"
	ev.AmountOut = 1800
	ev.DestBalance = 1800
	ev.Error = ""

	row := eventRow(ev)
	require.Len(t, row, 15)
	assert.Equal(t, "ev-3", row[0])
	assert.Equal(t, "swap", row[2])
	assert.Equal(t, "ok", row[3])
	assert.Equal(t, "rfq", row[5])
	assert.Equal(t, uint64(1003), row[8])
	assert.Equal(t, uint64(1800), row[9])
	assert.Equal(t, uint64(1800), row[13])
}

func TestEventsTableDDL(t *testing.T) {
	ddl := EventsTableDDL("treasury")
	assert.Contains(t, ddl, "treasury.ledger_events")
	for _, col := range []string{"id ", "amount_in_ui ", "source_balance ", "error "} {
		assert.True(t, strings.Contains(ddl, col), col)
	}
}
