package ai

import (
	"fmt"
	"strings"
)

// eventsSchemaDescription describes the ledger event journal for NL→SQL
// prompting. Keep it in sync with cache.EventsTableDDL.
func eventsSchemaDescription(database string) string {
	return fmt.Sprintf(`
Database: %[1]s
Table: %[1]s.ledger_events

Columns:
  - id             String          -- Event id (UUID)
  - timestamp      DateTime64(3)   -- When the operation finished (UTC)
  - kind           String          -- 'deposit', 'swap' or 'withdrawal'
  - status         String          -- 'ok' or 'failed'
  - caller         String          -- Base58 address of the caller
  - router         String          -- Router used by swaps: 'orca-pools', 'orca-legacy' or 'rfq'; empty otherwise
  - asset_in       String          -- Symbol of the asset paid in (deposits and swaps)
  - asset_out      String          -- Symbol of the asset paid out (swaps and withdrawals)
  - amount_in      UInt64          -- Raw units of asset_in
  - amount_out     UInt64          -- Raw units of asset_out
  - amount_in_ui   Decimal(38, 18) -- amount_in in whole token units
  - amount_out_ui  Decimal(38, 18) -- amount_out in whole token units
  - source_balance UInt64          -- Ledger source balance after the operation (raw)
  - dest_balance   UInt64          -- Ledger destination balance after the operation (raw)
  - error          String          -- Failure reason when status = 'failed'

Notes:
  - Prefer the *_ui columns for human-facing amounts and volumes.
  - Only status = 'ok' rows moved funds.
  - The effective swap price is amount_out_ui / amount_in_ui.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`, database)
}

// ledgerDescription tells the model which symbols and routers appear in the
// journal. It is empty when nothing is known about the ledger.
func ledgerDescription(lc LedgerContext) string {
	var b strings.Builder
	if lc.Source != "" && lc.Dest != "" {
		fmt.Fprintf(&b, "\nThe ledger accepts %[1]s deposits, swaps them into %[2]s and pays %[2]s out to the owner.\n", lc.Source, lc.Dest)
		fmt.Fprintf(&b, "Deposits have asset_in = '%s'; swaps have asset_in = '%s' and asset_out = '%s'; withdrawals have asset_out = '%s'.\n", lc.Source, lc.Source, lc.Dest, lc.Dest)
	}
	if len(lc.Routers) > 0 {
		quoted := make([]string, len(lc.Routers))
		for i, r := range lc.Routers {
			quoted[i] = "'" + r + "'"
		}
		fmt.Fprintf(&b, "Swap routers in use: %s.\n", strings.Join(quoted, ", "))
	}
	return b.String()
}
