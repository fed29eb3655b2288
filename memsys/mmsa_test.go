package memsys_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bsc-ssrg/hermes/memsys"
)

func TestAllocReturnsRequestedLength(t *testing.T) {
	mm := &memsys.MMSA{Name: "test"}
	mm.Init()
	defer mm.Terminate(false)

	buf := mm.AllocSize(100)
	defer buf.Free()
	assert.Len(t, buf.Bytes(), 100)
}

func TestAllocRoundsUpToPageSlab(t *testing.T) {
	mm := &memsys.MMSA{Name: "test"}
	mm.Init()
	defer mm.Terminate(false)

	buf := mm.AllocSize(memsys.PageSize + 1)
	defer buf.Free()
	assert.Len(t, buf.Bytes(), int(memsys.PageSize)+1)

	slab, err := mm.GetSlab(memsys.PageSize * 2)
	assert.NoError(t, err)
	assert.Equal(t, memsys.PageSize*2, slab.Size())
}

func TestAllocBeyondMaxPageSlabIsUnpooled(t *testing.T) {
	mm := &memsys.MMSA{Name: "test"}
	mm.Init()
	defer mm.Terminate(false)

	buf := mm.AllocSize(memsys.MaxPageSlabSize + 1)
	defer buf.Free()
	assert.Len(t, buf.Bytes(), int(memsys.MaxPageSlabSize)+1)
}

func TestGetSlabRejectsBadSizes(t *testing.T) {
	mm := &memsys.MMSA{Name: "test"}
	mm.Init()
	defer mm.Terminate(false)

	_, err := mm.GetSlab(0)
	assert.Error(t, err)

	_, err = mm.GetSlab(memsys.PageSize + 1)
	assert.Error(t, err)

	_, err = mm.GetSlab(memsys.MaxPageSlabSize + memsys.PageSize)
	assert.Error(t, err)
}

func TestConcurrentAllocFree(t *testing.T) {
	mm := &memsys.MMSA{Name: "test"}
	mm.Init()
	defer mm.Terminate(false)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 32; j++ {
				b := mm.AllocSize(memsys.PageSize * 3)
				b.Bytes()[0] = 1
				b.Free()
			}
		}()
	}
	wg.Wait()

	stats := mm.GetStats()
	assert.Greater(t, stats.Hits[2], int64(0))
}

func TestPageMMSingleton(t *testing.T) {
	a := memsys.PageMM()
	b := memsys.PageMM()
	assert.Same(t, a, b)
}
