// Package mmu builds the three-level identity map scaffold (spec's
// component M): the low 1 GiB as Normal WBWA cacheable, a parallel 1 GiB
// Non-Cacheable alias at a fixed positive offset, and a Device-nGnRE block
// for MMIO. Enable is idempotent; MarkPageInvalid installs guard pages used
// by stack-overflow detection in debug builds.
package mmu

import (
	"fmt"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/constants"
)

// Region describes one of the three mappings Build installs.
type Region struct {
	VirtBase uintptr
	PhysBase uintptr
	Size     uintptr
	Attr     arch.Attribute
}

// Table is the three-level identity map. The arm64 build backs it with
// real ARMv8-A translation table descriptors (table_arm64.go); the host build
// backs it with a page-indexed map good enough to exercise Translate and
// MarkPageInvalid in tests (table_stub.go).
type Table struct {
	enabled bool
	impl    tableImpl
}

// New returns an unbuilt table.
func New() *Table {
	return &Table{impl: newTableImpl()}
}

// ErrMisaligned is returned by Build/MarkPageInvalid for an address or size
// that isn't page-aligned.
type ErrMisaligned struct{ What string }

func (e *ErrMisaligned) Error() string { return "mmu: " + e.What + " is not page-aligned" }

func aligned(v uintptr) bool { return v%constants.PageBytes == 0 }

// Build installs the identity mapping, its non-cacheable alias, and a
// Device-nGnRE region for MMIO, covering constants.IdentityRegionBytes
// starting at physBase.
func (t *Table) Build(physBase uintptr, mmioBase, mmioSize uintptr) error {
	if !aligned(physBase) || !aligned(mmioBase) {
		return &ErrMisaligned{What: "region base"}
	}
	if mmioSize%constants.PageBytes != 0 {
		return &ErrMisaligned{What: "mmio size"}
	}
	regions := []Region{
		{VirtBase: physBase, PhysBase: physBase, Size: constants.IdentityRegionBytes, Attr: arch.AttrNormalCacheable},
		{VirtBase: physBase + constants.NCAliasOffset, PhysBase: physBase, Size: constants.IdentityRegionBytes, Attr: arch.AttrNormalNonCacheable},
		{VirtBase: mmioBase, PhysBase: mmioBase, Size: mmioSize, Attr: arch.AttrDevice},
	}
	for _, r := range regions {
		if err := t.impl.mapRegion(r); err != nil {
			return fmt.Errorf("mmu: %w", err)
		}
	}
	return nil
}

// Enable installs the table into the translation hardware. Idempotent:
// calling it again with the table unchanged is a no-op.
func (t *Table) Enable() {
	if t.enabled {
		return
	}
	t.impl.install()
	t.enabled = true
}

// Translate returns the physical address and attribute mapped at va, or
// ok=false if no valid mapping covers it.
func (t *Table) Translate(va uintptr) (pa uintptr, attr arch.Attribute, ok bool) {
	return t.impl.translate(va)
}

// MarkPageInvalid clears the valid bit for the page containing va, used to
// install guard pages for stack-overflow detection in debug builds. va
// must be page-aligned.
func (t *Table) MarkPageInvalid(va uintptr) error {
	if !aligned(va) {
		return &ErrMisaligned{What: "guard page address"}
	}
	t.impl.invalidatePage(va)
	return nil
}
