package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks malformed arguments to a pure scoring function
var ErrInvalidInput = errors.New("invalid input")

// ErrIntegrityMismatch marks a record whose recomputed signatures differ from the stored ones
var ErrIntegrityMismatch = errors.New("integrity mismatch")

// InvalidInputError describes which function rejected its arguments and why
type InvalidInputError struct {
	Func   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Func, ErrInvalidInput, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// InvalidInput builds an InvalidInputError
func InvalidInput(fn, format string, args ...interface{}) error {
	return &InvalidInputError{Func: fn, Reason: fmt.Sprintf(format, args...)}
}

// StructuralError is a missing or malformed claim field.
// It is reported, never returned as a Go error.
type StructuralError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e StructuralError) String() string {
	return e.Field + ": " + e.Reason
}

// Finalization stages
const (
	StageGate    = "gate"
	StageAnchor  = "anchor"
	StageLock    = "lock"
	StageField   = "field"
	StageSign    = "sign"
	StagePersist = "persist"
	StageStore   = "store"
	StagePanic   = "panic"

	// StageCancelled marks nodes never finalized because the batch was cancelled
	StageCancelled = "cancelled"
	StageUnknown   = "unknown"
)

// FinalizationError is a failure while finalizing one node
type FinalizationError struct {
	NodeID string
	Stage  string
	Err    error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("finalize %s: %s: %v", e.NodeID, e.Stage, e.Err)
}

func (e *FinalizationError) Unwrap() error {
	return e.Err
}
