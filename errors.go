package corekernel

import (
	"errors"
	"fmt"
)

// KernelErrorCode categorizes a KernelError the way spec §7 separates
// "invalid argument" / "resource exhaustion" from a programming error. Only
// conditions the core can recover from (return to the caller) get a code;
// a programming error never constructs a KernelError — it calls
// logging.Fatal and never returns.
type KernelErrorCode string

const (
	ErrCodeInvalidArgument   KernelErrorCode = "invalid argument"
	ErrCodeResourceExhausted KernelErrorCode = "resource exhausted"
	ErrCodeMisaligned        KernelErrorCode = "misaligned address"
	ErrCodeNotConfigured     KernelErrorCode = "not configured"
)

// KernelError is the structured error Boot returns for recoverable
// failures, in an Op/Code/Msg/Inner shape. The internal packages (dma,
// sched, kmem) return their own error values instead.
type KernelError struct {
	Op    string // operation that failed, e.g. "mmu.Build", "dma.Submit"
	Code  KernelErrorCode
	Msg   string
	Inner error
}

func (e *KernelError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("corekernel: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("corekernel: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *KernelError) Unwrap() error { return e.Inner }

// Is provides errors.Is support: two KernelErrors match on Code alone.
func (e *KernelError) Is(target error) bool {
	te, ok := target.(*KernelError)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewKernelError constructs a KernelError with no wrapped cause.
func NewKernelError(op string, code KernelErrorCode, msg string) *KernelError {
	return &KernelError{Op: op, Code: code, Msg: msg}
}

// WrapKernelError wraps an existing error under op, preserving the inner
// error's code when it is already a *KernelError.
func WrapKernelError(op string, code KernelErrorCode, inner error) *KernelError {
	if inner == nil {
		return nil
	}
	if ke, ok := inner.(*KernelError); ok {
		return &KernelError{Op: op, Code: ke.Code, Msg: ke.Msg, Inner: ke}
	}
	return &KernelError{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *KernelError with the given code.
func IsCode(err error, code KernelErrorCode) bool {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Code == code
	}
	return false
}
