// Package orchard holds the error taxonomy and the fixed sizes shared by the
// Orchard key, signing and shielding packages.
//
// Errors returned across the flat binding surface are always *Error values
// carrying one of the codes below, so callers can branch on Code without
// string matching. Each code also has a sentinel usable with errors.Is:
//
//	if errors.Is(err, orchard.ErrInsufficientFunds) { ... }
//
// Messages never contain key material.
package orchard

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeInvalidLength         = "INVALID_LENGTH"          // F4Jumble input outside the supported length range
	CodeInvalidSpendingKey    = "INVALID_SPENDING_KEY"    // Spending key derives a degenerate key
	CodeInvalidDiversifier    = "INVALID_DIVERSIFIER"     // Diversifier index maps to a degenerate diversifier
	CodeInvalidAlpha          = "INVALID_ALPHA"           // Zero or non-canonical randomizer
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"      // Outputs exceed spends
	CodeMalformedActionInfo   = "MALFORMED_ACTION_INFO"   // Structurally invalid shielding request
	CodeRandomSourceExhausted = "RANDOM_SOURCE_EXHAUSTED" // Randomness source could not supply bytes
	CodeSigning               = "SIGNING_ERROR"           // Unexpected arithmetic failure while signing
	CodeInvalidEncoding       = "INVALID_ENCODING"        // Malformed key, address or unified encoding
)

// Sentinels, one per code. An *Error matches the sentinel of its code.
var (
	ErrInvalidLength         = errors.New("invalid length")
	ErrInvalidSpendingKey    = errors.New("invalid spending key")
	ErrInvalidDiversifier    = errors.New("invalid diversifier")
	ErrInvalidAlpha          = errors.New("invalid alpha")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrMalformedActionInfo   = errors.New("malformed action info")
	ErrRandomSourceExhausted = errors.New("random source exhausted")
	ErrSigning               = errors.New("signing error")
	ErrInvalidEncoding       = errors.New("invalid encoding")
)

var sentinels = map[string]error{
	CodeInvalidLength:         ErrInvalidLength,
	CodeInvalidSpendingKey:    ErrInvalidSpendingKey,
	CodeInvalidDiversifier:    ErrInvalidDiversifier,
	CodeInvalidAlpha:          ErrInvalidAlpha,
	CodeInsufficientFunds:     ErrInsufficientFunds,
	CodeMalformedActionInfo:   ErrMalformedActionInfo,
	CodeRandomSourceExhausted: ErrRandomSourceExhausted,
	CodeSigning:               ErrSigning,
	CodeInvalidEncoding:       ErrInvalidEncoding,
}

// Error is the structured error returned by every Orchard operation.
type Error struct {
	Code    string // One of the Code* constants
	Message string // Human-readable context, never secret bytes
	Cause   error  // Underlying error (if any)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("orchard error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("orchard error [%s]: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's code, or an *Error with
// the same code.
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Errorf builds an *Error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around cause.
func Wrap(code string, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
