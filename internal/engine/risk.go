package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrRiskLimit = errors.New("risk limit exceeded")

// RiskConfig bounds swaps in raw source units. A zero limit is disabled.
type RiskConfig struct {
	MaxSwapAmount uint64
	// DailyLimit caps the rolling 24h total of executed swap inputs.
	DailyLimit uint64

	DefaultSlippageBps uint16
	MaxSlippageBps     uint16
	DeadlineWindow     time.Duration
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		DefaultSlippageBps: 100,  // 1%
		MaxSlippageBps:     1000, // 10%
		DeadlineWindow:     2 * time.Minute,
	}
}

// RiskStatus reports limits and rolling usage.
type RiskStatus struct {
	MaxSwapAmount  uint64 `json:"max_swap_amount"`
	DailyLimit     uint64 `json:"daily_limit"`
	DailyUsed      uint64 `json:"daily_used"`
	DailyRemaining uint64 `json:"daily_remaining"`
}

// RiskManager enforces per-swap and daily limits ahead of the ledger.
type RiskManager struct {
	config       RiskConfig
	dailyTracker *DailyLimitTracker
}

func NewRiskManager(config RiskConfig, now func() time.Time) *RiskManager {
	return &RiskManager{
		config:       config,
		dailyTracker: NewDailyLimitTracker(now),
	}
}

// CheckSwap rejects amountIn if it breaks a limit.
func (rm *RiskManager) CheckSwap(amountIn uint64) error {
	if rm.config.MaxSwapAmount > 0 && amountIn > rm.config.MaxSwapAmount {
		return fmt.Errorf("%w: swap of %d exceeds max %d per transaction",
			ErrRiskLimit, amountIn, rm.config.MaxSwapAmount)
	}
	if rm.config.DailyLimit > 0 {
		used := rm.dailyTracker.Usage()
		if used > rm.config.DailyLimit || amountIn > rm.config.DailyLimit-used {
			return fmt.Errorf("%w: daily limit exceeded: used %d + %d > %d",
				ErrRiskLimit, used, amountIn, rm.config.DailyLimit)
		}
	}
	return nil
}

// RecordSwap counts an executed swap against the daily limit.
func (rm *RiskManager) RecordSwap(amountIn uint64) {
	rm.dailyTracker.Record(amountIn)
}

func (rm *RiskManager) Status() *RiskStatus {
	used := rm.dailyTracker.Usage()
	s := &RiskStatus{
		MaxSwapAmount: rm.config.MaxSwapAmount,
		DailyLimit:    rm.config.DailyLimit,
		DailyUsed:     used,
	}
	if rm.config.DailyLimit > used {
		s.DailyRemaining = rm.config.DailyLimit - used
	}
	return s
}

// DailyLimitTracker tracks rolling 24-hour usage.
type DailyLimitTracker struct {
	now func() time.Time

	mu    sync.Mutex
	swaps []swapRecord
}

type swapRecord struct {
	timestamp time.Time
	amount    uint64
}

func NewDailyLimitTracker(now func() time.Time) *DailyLimitTracker {
	if now == nil {
		now = time.Now
	}
	return &DailyLimitTracker{now: now}
}

func (t *DailyLimitTracker) Record(amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.swaps = append(t.swaps, swapRecord{timestamp: t.now(), amount: amount})
	t.cleanup()
}

// Usage is the total recorded in the last 24 hours, saturating at MaxUint64.
func (t *DailyLimitTracker) Usage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup()

	var total uint64
	for _, s := range t.swaps {
		if total+s.amount < total {
			return ^uint64(0)
		}
		total += s.amount
	}
	return total
}

// cleanup drops records older than 24 hours. Callers hold mu.
func (t *DailyLimitTracker) cleanup() {
	cutoff := t.now().Add(-24 * time.Hour)
	kept := t.swaps[:0]
	for _, s := range t.swaps {
		if s.timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	t.swaps = kept
}
