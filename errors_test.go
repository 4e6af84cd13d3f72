package corekernel

import (
	"errors"
	"testing"
)

func TestKernelErrorMessage(t *testing.T) {
	err := NewKernelError("mmu.Build", ErrCodeMisaligned, "physBase is not page-aligned")
	want := "corekernel: mmu.Build: physBase is not page-aligned"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKernelErrorMessageFallsBackToCode(t *testing.T) {
	err := NewKernelError("dma.Submit", ErrCodeInvalidArgument, "")
	want := "corekernel: dma.Submit: invalid argument"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapKernelErrorPreservesInnerCode(t *testing.T) {
	inner := NewKernelError("mmu.Build", ErrCodeMisaligned, "bad alignment")
	wrapped := WrapKernelError("Boot", ErrCodeResourceExhausted, inner)
	if wrapped.Code != ErrCodeMisaligned {
		t.Errorf("wrapped code = %v, want the inner error's code %v", wrapped.Code, ErrCodeMisaligned)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("errors.Is should match through KernelError.Is by code")
	}
	if !errors.As(wrapped, new(*KernelError)) {
		t.Error("errors.As should find the *KernelError")
	}
}

func TestWrapKernelErrorNilIsNil(t *testing.T) {
	if WrapKernelError("Boot", ErrCodeInvalidArgument, nil) != nil {
		t.Error("WrapKernelError(nil) should return nil")
	}
}

func TestIsCode(t *testing.T) {
	err := NewKernelError("kmem.MmapArena", ErrCodeResourceExhausted, "out of memory")
	if !IsCode(err, ErrCodeResourceExhausted) {
		t.Error("IsCode should match the error's own code")
	}
	if IsCode(err, ErrCodeMisaligned) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain error"), ErrCodeResourceExhausted) {
		t.Error("IsCode should be false for a non-KernelError")
	}
}
