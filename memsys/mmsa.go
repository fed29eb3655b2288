package memsys

import (
	"fmt"
	"sync"
	"time"

	"github.com/bsc-ssrg/hermes/cmn/cos"
	"github.com/bsc-ssrg/hermes/cmn/nlog"
)

// MMSA ("memory manager, slab allocator") owns one family of page-multiple
// slabs, sized PageSize, 2*PageSize, ... NumPageSlabs*PageSize. Allocations
// larger than MaxPageSlabSize fall back to a plain make([]byte, n) with no
// pooling. Grounded on aistore memsys' MMSA, trimmed to what bulk transfer
// buffer supply needs: no SGL scatter-gather lists and no background
// eviction or sweep goroutine. TimeIval is not read by this
// implementation.
type MMSA struct {
	Name     string
	TimeIval time.Duration

	once  sync.Once
	slabs [NumPageSlabs]*Slab
	stopc cos.StopCh
}

var (
	defaultMM   *MMSA
	defaultOnce sync.Once
)

// PageMM returns the process-wide default page-slab allocator, lazily
// constructed on first use.
func PageMM() *MMSA {
	defaultOnce.Do(func() {
		defaultMM = &MMSA{Name: "default", TimeIval: time.Minute}
		defaultMM.Init()
	})
	return defaultMM
}

func (mm *MMSA) Init() {
	mm.once.Do(func() {
		for i := range mm.slabs {
			size := PageSize * int64(i+1)
			mm.slabs[i] = newSlab(size, fmt.Sprintf("%s-page-%d", mm.Name, i+1))
		}
		mm.stopc.Init()
		nlog.Mercuryf("memsys(%s): initialized %d page slabs", mm.Name, NumPageSlabs)
	})
}

// GetSlab returns the slab responsible for exactly `size` bytes, where size
// must be a positive multiple of PageSize no larger than MaxPageSlabSize.
func (mm *MMSA) GetSlab(size int64) (*Slab, error) {
	if size <= 0 || size%PageSize != 0 {
		return nil, fmt.Errorf("memsys: size %d is not a positive multiple of page size %d", size, PageSize)
	}
	idx := size/PageSize - 1
	if idx < 0 || idx >= NumPageSlabs {
		return nil, fmt.Errorf("memsys: size %d exceeds max page-slab size %d", size, MaxPageSlabSize)
	}
	return mm.slabs[idx], nil
}

// AllocSize returns a buffer of at least `size` bytes: from the matching
// page slab when size fits a whole number of pages within the pooled
// range, rounding up to the next page boundary; otherwise a fresh,
// unpooled allocation.
func (mm *MMSA) AllocSize(size int64) *Buf {
	if size <= 0 {
		return &Buf{b: make([]byte, 0)}
	}
	rounded := ((size + PageSize - 1) / PageSize) * PageSize
	if rounded > MaxPageSlabSize {
		return &Buf{b: make([]byte, size)}
	}
	slab, err := mm.GetSlab(rounded)
	if err != nil {
		return &Buf{b: make([]byte, size)}
	}
	full := slab.alloc()
	return &Buf{b: full[:size], full: full, slab: slab, mm: mm}
}

// Free returns a Buf's backing storage to its slab, if it came from one.
func (mm *MMSA) Free(b *Buf) {
	if b == nil || b.slab == nil {
		return
	}
	b.slab.free(b.full)
	b.full, b.b, b.slab = nil, nil, nil
}

// Stats reports approximate per-slab allocation counts.
type Stats struct {
	Hits [NumPageSlabs]int64
}

func (mm *MMSA) GetStats() Stats {
	var s Stats
	for i, slab := range mm.slabs {
		if slab != nil {
			s.Hits[i] = slab.hitCount()
		}
	}
	return s
}

// Terminate closes the allocator's stop channel; no goroutine of this
// package waits on it, and pooled buffers are left as they are. forkedChild mirrors the
// convention used elsewhere in this module for post-fork children that
// must not tear down inherited resources.
func (mm *MMSA) Terminate(forkedChild bool) {
	if forkedChild {
		return
	}
	mm.stopc.Close()
}

// Buf is a single contiguous buffer handed out by an MMSA; Free returns it
// to its slab (a no-op for unpooled, oversize allocations).
type Buf struct {
	b    []byte
	full []byte
	slab *Slab
	mm   *MMSA
}

func (b *Buf) Bytes() []byte { return b.b }
func (b *Buf) Len() int      { return len(b.b) }

func (b *Buf) Free() {
	if b.mm != nil {
		b.mm.Free(b)
	}
}
