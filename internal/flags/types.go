package flags

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("switch not found")
	ErrUnknownSwitch = errors.New("unknown switch")
)

// Switch is a named operational toggle. For pause switches Value true means
// the operation is paused.
type Switch struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}
