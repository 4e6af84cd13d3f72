//go:build !arm64

package mmu

import (
	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/constants"
)

// The host build has no real translation hardware to program, so it backs
// the three-level table with a flat page-indexed map — enough to exercise
// Build/Translate/MarkPageInvalid's *semantics* without encoding real
// ARMv8-A descriptors (that part lives in table_arm64.go).
type pte struct {
	pa    uintptr
	attr  arch.Attribute
	valid bool
}

type tableImpl struct {
	pages map[uintptr]pte // keyed by page-aligned virtual address
}

func newTableImpl() tableImpl {
	return tableImpl{pages: make(map[uintptr]pte)}
}

func (t *tableImpl) mapRegion(r Region) error {
	for off := uintptr(0); off < r.Size; off += constants.PageBytes {
		t.pages[r.VirtBase+off] = pte{pa: r.PhysBase + off, attr: r.Attr, valid: true}
	}
	return nil
}

func (t *tableImpl) install() {}

func (t *tableImpl) translate(va uintptr) (uintptr, arch.Attribute, bool) {
	base := va &^ (constants.PageBytes - 1)
	p, ok := t.pages[base]
	if !ok || !p.valid {
		return 0, 0, false
	}
	return p.pa + (va - base), p.attr, true
}

func (t *tableImpl) invalidatePage(va uintptr) {
	base := va &^ (constants.PageBytes - 1)
	if p, ok := t.pages[base]; ok {
		p.valid = false
		t.pages[base] = p
	}
}

