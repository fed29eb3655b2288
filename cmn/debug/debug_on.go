//go:build debug

// Package debug provides assertion helpers; built with -tags debug these
// panic instead of compiling away, for catching execution-context and
// bulk-descriptor invariant violations during development.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"
	"sync"

	"github.com/bsc-ssrg/hermes/cmn/nlog"
)

func ON() bool { return true }

func Infof(format string, a ...any) { nlog.Debugf(format, a...) }

func Func(f func()) { f() }

func Assert(cond bool, a ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, a...)...))
	}
}

func AssertFunc(f func() bool, a ...any) { Assert(f(), a...) }

func AssertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}

func Assertf(cond bool, format string, a ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, a...))
	}
}

// AssertMutexLocked and friends are best-effort: sync.Mutex exposes no
// public "is locked" query, so these are no-ops kept for call-site parity
// with the !debug build; the invariant is instead exercised by -race.
func AssertMutexLocked(_ *sync.Mutex)      {}
func AssertRWMutexLocked(_ *sync.RWMutex)  {}
func AssertRWMutexRLocked(_ *sync.RWMutex) {}
