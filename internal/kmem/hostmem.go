//go:build !arm64

package kmem

import "golang.org/x/sys/unix"

// MmapArena reserves n page-aligned bytes of anonymous memory for the host
// build, standing in for the bare-metal boot allocator's carve-out of
// physical RAM (spec §1 scopes the boot allocator itself out, but the DMA
// arena and MMU scaffold still need real, page-aligned backing memory to
// exercise their bookkeeping against on a development machine). This plays
// the same role the teacher's mmapQueues does for the shared descriptor
// array: a raw unix.Mmap anonymous mapping rather than a make([]byte, n)
// slice, so the resulting address is genuinely page-aligned.
func MmapArena(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

// UnmmapArena releases memory obtained from MmapArena.
func UnmmapArena(buf []byte) error {
	return unix.Munmap(buf)
}
