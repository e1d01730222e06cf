package domain

import (
	"strings"
	"time"
	"unicode"
)

// AttemptStatus records the outcome of the most recent pipeline attempt
// for a tracked symbol.
type AttemptStatus string

const (
	AttemptNeverRun AttemptStatus = "never_run"
	AttemptSuccess  AttemptStatus = "success"
	AttemptFailure  AttemptStatus = "failure"
)

// TrackedSymbol represents a ticker symbol under active monitoring.
// Symbols are never deleted, only deactivated, so attempt history
// survives for audit purposes.
type TrackedSymbol struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Active            bool          `json:"active"`
	LastAttemptAt     *time.Time    `json:"last_attempt_at,omitempty"`
	LastAttemptStatus AttemptStatus `json:"last_attempt_status"`
	LastError         *string       `json:"last_error,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewTrackedSymbol creates a new tracked symbol with validation
func NewTrackedSymbol(name string) (*TrackedSymbol, error) {
	name = NormalizeSymbol(name)

	if err := ValidateSymbolName(name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &TrackedSymbol{
		Name:              name,
		Active:            true,
		LastAttemptStatus: AttemptNeverRun,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// NormalizeSymbol uppercases and trims a raw symbol name
func NormalizeSymbol(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// ValidateSymbolName validates the symbol name format.
// Symbol names must be uppercase alphanumeric with an optional dot
// (class shares such as BRK.B), between 1 and 10 characters.
func ValidateSymbolName(name string) error {
	if len(name) < 1 || len(name) > 10 {
		return ErrInvalidSymbol
	}

	for i, r := range name {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			continue
		}
		if r == '.' && i > 0 && i < len(name)-1 {
			continue
		}
		return ErrInvalidSymbol
	}

	return nil
}

// RecordSuccess marks the most recent attempt as successful
func (s *TrackedSymbol) RecordSuccess(at time.Time) {
	s.LastAttemptAt = &at
	s.LastAttemptStatus = AttemptSuccess
	s.LastError = nil
	s.UpdatedAt = time.Now().UTC()
}

// RecordFailure marks the most recent attempt as failed with a reason
func (s *TrackedSymbol) RecordFailure(at time.Time, reason string) {
	s.LastAttemptAt = &at
	s.LastAttemptStatus = AttemptFailure
	s.LastError = &reason
	s.UpdatedAt = time.Now().UTC()
}

// Deactivate marks the symbol as inactive
func (s *TrackedSymbol) Deactivate() {
	s.Active = false
	s.UpdatedAt = time.Now().UTC()
}

// Activate marks the symbol as active
func (s *TrackedSymbol) Activate() {
	s.Active = true
	s.UpdatedAt = time.Now().UTC()
}
