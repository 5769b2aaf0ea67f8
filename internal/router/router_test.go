package router

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestCheckRequest(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  SwapRequest
		want error
	}{
		{"ok", SwapRequest{Path: []solana.PublicKey{a, b}, AmountIn: 1, Deadline: now.Add(time.Minute)}, nil},
		{"deadline equal to now is still valid", SwapRequest{Path: []solana.PublicKey{a, b}, AmountIn: 1, Deadline: now}, nil},
		{"short path", SwapRequest{Path: []solana.PublicKey{a}, AmountIn: 1, Deadline: now}, ErrInvalidPath},
		{"self hop", SwapRequest{Path: []solana.PublicKey{a, a}, AmountIn: 1, Deadline: now}, ErrInvalidPath},
		{"zero amount", SwapRequest{Path: []solana.PublicKey{a, b}, Deadline: now}, ErrZeroAmount},
		{"expired", SwapRequest{Path: []solana.PublicKey{a, b}, AmountIn: 1, Deadline: now.Add(-time.Second)}, ErrDeadlineExpired},
		{"zero deadline", SwapRequest{Path: []solana.PublicKey{a, b}, AmountIn: 1}, ErrDeadlineExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRequest(tt.req, now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckMinOut(t *testing.T) {
	assert.NoError(t, CheckMinOut(100, 100))
	assert.NoError(t, CheckMinOut(100, 0))
	assert.ErrorIs(t, CheckMinOut(99, 100), ErrSlippage)
}
