//go:build arm64

package mmu

import (
	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/constants"
)

// ARMv8-A long-descriptor format bits relevant to an identity-mapped,
// 4 KiB-granule, three-level (L1 block / L2 block / L3 page) table.
const (
	descValid  = 1 << 0
	descTable  = 1 << 1 // set for table descriptors, clear for block descriptors
	descAF     = 1 << 10
	descInnerSH = 3 << 8

	attrIdxNormalWBWA = 0 // MAIR index 0: Normal, Write-Back Write-Allocate
	attrIdxNormalNC   = 1 // MAIR index 1: Normal, Non-Cacheable
	attrIdxDevice     = 2 // MAIR index 2: Device-nGnRE
)

func attrIndex(a arch.Attribute) uint64 {
	switch a {
	case arch.AttrNormalNonCacheable:
		return attrIdxNormalNC
	case arch.AttrDevice:
		return attrIdxDevice
	default:
		return attrIdxNormalWBWA
	}
}

// blockDescriptor builds an L1 1 GiB block descriptor mapping pa with the
// given memory attribute, access-flag pre-set (this kernel never takes a
// real access-flag fault — it never demand-pages).
func blockDescriptor(pa uintptr, a arch.Attribute) uint64 {
	return uint64(pa) | descValid | descAF | descInnerSH | (attrIndex(a) << 2)
}

// tableImpl backs the three-level table with real descriptors written into
// a page-aligned arena. L1 has one 1 GiB block entry per region; L2/L3 are
// unused for the block-mapped regions this kernel builds (spec only asks
// for 1 GiB identity, alias, and MMIO blocks, not fine-grained paging) but
// are kept as fields so MarkPageInvalid can split a block down to a single
// invalidated L3 page entry when asked.
type tableImpl struct {
	l1 [512]uint64 // one L1 table covers 512 GiB at 1 GiB per entry

	// split holds L3 page tables for any 1 GiB block MarkPageInvalid has
	// broken up to clear a single page's valid bit — the common case is
	// empty; most of this kernel's address space stays block-mapped.
	split map[uintptr]*[512]uint64
}

func newTableImpl() tableImpl {
	return tableImpl{split: make(map[uintptr]*[512]uint64)}
}

func l1Index(va uintptr) int { return int((uint64(va) >> 30) & 0x1ff) }

func (t *tableImpl) mapRegion(r Region) error {
	for off := uintptr(0); off < r.Size; off += 1 << 30 {
		idx := l1Index(r.VirtBase + off)
		t.l1[idx] = blockDescriptor(r.PhysBase+off, r.Attr)
	}
	return nil
}

// install issues only the ISB that must follow an MMU enable (spec §4.A's
// ISB-after-SCTLR contract). It does not write TTBR0_EL1 or SCTLR_EL1;
// those register writes are not performed anywhere in this Go layer.
func (t *tableImpl) install() {
	arch.ISB()
}

func (t *tableImpl) translate(va uintptr) (uintptr, arch.Attribute, bool) {
	if pt, ok := t.split[va&^(1<<30-1)]; ok {
		idx := int((uint64(va) >> 12) & 0x1ff)
		desc := pt[idx]
		if desc&descValid == 0 {
			return 0, 0, false
		}
		return uintptr(desc &^ 0xfff), attrFromIndex((desc >> 2) & 0x7), true
	}
	desc := t.l1[l1Index(va)]
	if desc&descValid == 0 {
		return 0, 0, false
	}
	blockBase := uintptr(desc &^ (1<<30 - 1))
	return blockBase + (va & (1<<30 - 1)), attrFromIndex((desc >> 2) & 0x7), true
}

func attrFromIndex(idx uint64) arch.Attribute {
	switch idx {
	case attrIdxNormalNC:
		return arch.AttrNormalNonCacheable
	case attrIdxDevice:
		return arch.AttrDevice
	default:
		return arch.AttrNormalCacheable
	}
}

// invalidatePage breaks the 1 GiB block covering va down to a private L3
// table (copying the block's attributes to every page) if one does not
// already exist, then clears the single page's valid bit.
func (t *tableImpl) invalidatePage(va uintptr) {
	blockVA := va &^ (1<<30 - 1)
	pt, ok := t.split[blockVA]
	if !ok {
		desc := t.l1[l1Index(va)]
		pt = &[512]uint64{}
		for i := range pt {
			pt[i] = (desc &^ uint64(1<<30-1)) | uint64(i)*constants.PageBytes | (desc & (descAF | descInnerSH | (0x7 << 2) | descValid))
		}
		t.split[blockVA] = pt
		t.l1[l1Index(va)] = desc | descTable
	}
	idx := int((uint64(va) >> 12) & 0x1ff)
	pt[idx] &^= descValid
}
