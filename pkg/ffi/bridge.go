// Package ffi is the Go half of the C ABI exported by cmd/liborchard.
//
// Every exported C function returns an integer status code and, on
// success, a heap buffer the caller releases with orchard_free_bytes. The
// message of the last failure is kept per process and read back with
// orchard_last_error_message. This package holds the parts of that ABI that
// do not need cgo: status codes, the last-error slot and the call wrapper,
// so they can be tested without a C toolchain.
//
// Corresponds to: trezor-firmware core/embed/rust/src/orchard (error
// mapping of the device bindings)
package ffi

import (
	"errors"
	"sync"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

// Status is the integer returned across the C boundary.
type Status int32

// Status values. They are part of the ABI and must never be renumbered.
const (
	StatusOK                    Status = 0
	StatusNullPointer           Status = 1
	StatusInvalidLength         Status = 2
	StatusInvalidSpendingKey    Status = 3
	StatusInvalidDiversifier    Status = 4
	StatusInvalidAlpha          Status = 5
	StatusInsufficientFunds     Status = 6
	StatusMalformedActionInfo   Status = 7
	StatusRandomSourceExhausted Status = 8
	StatusSigning               Status = 9
	StatusInvalidEncoding       Status = 10
	StatusInternal              Status = 255
)

var statusByCode = map[string]Status{
	orchard.CodeInvalidLength:         StatusInvalidLength,
	orchard.CodeInvalidSpendingKey:    StatusInvalidSpendingKey,
	orchard.CodeInvalidDiversifier:    StatusInvalidDiversifier,
	orchard.CodeInvalidAlpha:          StatusInvalidAlpha,
	orchard.CodeInsufficientFunds:     StatusInsufficientFunds,
	orchard.CodeMalformedActionInfo:   StatusMalformedActionInfo,
	orchard.CodeRandomSourceExhausted: StatusRandomSourceExhausted,
	orchard.CodeSigning:               StatusSigning,
	orchard.CodeInvalidEncoding:       StatusInvalidEncoding,
}

// StatusOf maps err to its status. Errors without an orchard code map to
// StatusInternal.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var oe *orchard.Error
	if errors.As(err, &oe) {
		if s, ok := statusByCode[oe.Code]; ok {
			return s
		}
	}
	return StatusInternal
}

// ErrNullPointer is recorded when a required C pointer is NULL.
var ErrNullPointer = errors.New("ffi: null pointer argument")

var lastError struct {
	sync.Mutex
	msg string
}

func setLastError(msg string) {
	lastError.Lock()
	lastError.msg = msg
	lastError.Unlock()
}

// LastError returns the message of the most recent failed call, or "" if
// the most recent call succeeded.
func LastError() string {
	lastError.Lock()
	defer lastError.Unlock()
	return lastError.msg
}

// Result is the outcome of one exported call.
type Result struct {
	Status Status
	Data   []byte
}

// Call runs fn and records its error as the last error. A panic inside fn
// is converted to StatusInternal so it never unwinds into C.
func Call(fn func() ([]byte, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			setLastError("ffi: internal error")
			res = Result{Status: StatusInternal}
		}
	}()
	data, err := fn()
	if err != nil {
		setLastError(err.Error())
		return Result{Status: StatusOf(err)}
	}
	setLastError("")
	return Result{Status: StatusOK, Data: data}
}

// NullPointer records and returns a StatusNullPointer result.
func NullPointer() Result {
	setLastError(ErrNullPointer.Error())
	return Result{Status: StatusNullPointer}
}
