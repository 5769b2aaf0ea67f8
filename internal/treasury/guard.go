package treasury

import "github.com/gagliardetto/solana-go"

// AccessGuard authorizes privileged ledger operations for a single owner
// fixed at construction.
type AccessGuard struct {
	owner solana.PublicKey
}

func NewAccessGuard(owner solana.PublicKey) AccessGuard {
	return AccessGuard{owner: owner}
}

func (g AccessGuard) Owner() solana.PublicKey { return g.owner }

func (g AccessGuard) IsOwner(caller solana.PublicKey) bool {
	return !g.owner.IsZero() && g.owner.Equals(caller)
}
