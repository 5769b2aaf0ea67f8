package treasury

import (
	"fmt"
	"math"
)

type account int

const (
	sourceAccount account = iota
	destAccount
)

func (a account) String() string {
	if a == sourceAccount {
		return "source"
	}
	return "destination"
}

type entry struct {
	acct   account
	amount uint64
}

// checkpoint is a journal of balance changes made by one operation. Debits
// apply immediately and are parked as pending until commit; credits only
// reserve headroom until commit applies them. revert undoes the journal,
// so re-entrant operations that committed in between keep their effects.
//
// For each account balance+pending never exceeds math.MaxUint64, which
// keeps every revert and reserved credit free of overflow.
type checkpoint struct {
	l       *Ledger
	debits  []entry
	credits []entry
	closed  bool
}

func (l *Ledger) begin() *checkpoint {
	return &checkpoint{l: l}
}

// slots must be called with l.mu held.
func (l *Ledger) slots(a account) (balance, pending *uint64) {
	if a == sourceAccount {
		return &l.sourceBalance, &l.sourcePending
	}
	return &l.destBalance, &l.destPending
}

func (l *Ledger) headroom(a account) uint64 {
	bal, pending := l.slots(a)
	return math.MaxUint64 - *bal - *pending
}

func (cp *checkpoint) debit(a account, amount uint64) error {
	cp.l.mu.Lock()
	defer cp.l.mu.Unlock()

	bal, pending := cp.l.slots(a)
	if *bal < amount {
		return fmt.Errorf("%w: %s balance %d, requested %d", ErrInsufficientBalance, a, *bal, amount)
	}
	*bal -= amount
	*pending += amount
	cp.debits = append(cp.debits, entry{a, amount})
	return nil
}

// debitAll takes the whole balance of a and returns it.
func (cp *checkpoint) debitAll(a account) uint64 {
	cp.l.mu.Lock()
	defer cp.l.mu.Unlock()

	bal, pending := cp.l.slots(a)
	amount := *bal
	if amount == 0 {
		return 0
	}
	*bal = 0
	*pending += amount
	cp.debits = append(cp.debits, entry{a, amount})
	return amount
}

func (cp *checkpoint) reserveCredit(a account, amount uint64) error {
	cp.l.mu.Lock()
	defer cp.l.mu.Unlock()

	if cp.l.headroom(a) < amount {
		return fmt.Errorf("%w: crediting %d to %s", ErrBalanceOverflow, amount, a)
	}
	_, pending := cp.l.slots(a)
	*pending += amount
	cp.credits = append(cp.credits, entry{a, amount})
	return nil
}

// commit finalizes the journal and applies extra credits in one step. If an
// extra credit does not fit, nothing is applied and the checkpoint stays open
// for revert.
func (cp *checkpoint) commit(extra ...entry) error {
	l := cp.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if cp.closed {
		return nil
	}

	cp.release()
	need := map[account]uint64{}
	for _, e := range extra {
		need[e.acct] += e.amount
		if need[e.acct] < e.amount || l.headroom(e.acct) < need[e.acct] {
			cp.restore()
			return fmt.Errorf("%w: crediting %d to %s", ErrBalanceOverflow, e.amount, e.acct)
		}
	}

	for _, e := range extra {
		bal, _ := l.slots(e.acct)
		*bal += e.amount
	}
	cp.closed = true
	return nil
}

// release moves the journal out of pending: debits become final and
// reserved credits land in the balance. Must be called with l.mu held.
func (cp *checkpoint) release() {
	for _, e := range cp.debits {
		_, pending := cp.l.slots(e.acct)
		*pending -= e.amount
	}
	for _, e := range cp.credits {
		bal, pending := cp.l.slots(e.acct)
		*pending -= e.amount
		*bal += e.amount
	}
}

// restore undoes release. Must be called with l.mu held.
func (cp *checkpoint) restore() {
	for _, e := range cp.credits {
		bal, pending := cp.l.slots(e.acct)
		*bal -= e.amount
		*pending += e.amount
	}
	for _, e := range cp.debits {
		_, pending := cp.l.slots(e.acct)
		*pending += e.amount
	}
}

// revert returns every debit to its balance and drops reserved credits.
// Reverting a closed checkpoint does nothing.
func (cp *checkpoint) revert() {
	l := cp.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if cp.closed {
		return
	}
	for i := len(cp.debits) - 1; i >= 0; i-- {
		e := cp.debits[i]
		bal, pending := l.slots(e.acct)
		*pending -= e.amount
		*bal += e.amount
	}
	for _, e := range cp.credits {
		_, pending := l.slots(e.acct)
		*pending -= e.amount
	}
	cp.closed = true
}
