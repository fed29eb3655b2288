// Package cos provides small low-level types and utilities shared across
// the engine (error aggregation, a close-once stop signal, size
// formatting). Deliberately stdlib-only: this is the kind of tiny
// internal-utility surface aistore's own cmn/cos handles without reaching
// for a third-party dependency either.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import "sync"

// StopCh is a close-once broadcast signal: many goroutines can Listen(),
// exactly one Close() is effective, subsequent Close() calls are no-ops.
type StopCh struct {
	ch   chan struct{}
	once sync.Once
}

func (sc *StopCh) Init() { sc.ch = make(chan struct{}) }

func (sc *StopCh) Listen() <-chan struct{} { return sc.ch }

func (sc *StopCh) Close() {
	sc.once.Do(func() { close(sc.ch) })
}

func (sc *StopCh) IsClosed() bool {
	select {
	case <-sc.ch:
		return true
	default:
		return false
	}
}
