// Package memsys provides fixed-size page buffer pooling for bulk transfer
// payloads, on top of sync.Pool-backed per-size slabs.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package memsys

import "sync"

const (
	PageSize        = int64(4 * 1024)
	MinPageSlabSize = PageSize
	NumPageSlabs    = 8
	MaxPageSlabSize = PageSize * int64(NumPageSlabs)
	DefaultBufSize  = PageSize
)

// Slab is one fixed-size pool: every buffer it hands out is exactly Size()
// bytes, grounded on aistore memsys' slab-per-size-class design.
type Slab struct {
	pool sync.Pool
	size int64
	tag  string
	hits int64 // guarded by mu
	mu   sync.Mutex
}

func newSlab(size int64, tag string) *Slab {
	s := &Slab{size: size, tag: tag}
	s.pool.New = func() any { return make([]byte, size) }
	return s
}

func (s *Slab) Size() int64  { return s.size }
func (s *Slab) Tag() string  { return s.tag }

func (s *Slab) alloc() []byte {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
	return s.pool.Get().([]byte)
}

func (s *Slab) free(buf []byte) {
	if int64(cap(buf)) != s.size {
		return // foreign buffer, not one of ours; drop it
	}
	s.pool.Put(buf[:s.size])
}

func (s *Slab) hitCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}
