// Package nlog is Hermes's logging engine: five severities (Info, Warning,
// Error, Fatal, and a dedicated Mercury channel for native-transport-layer
// log lines) plus an independently-gated Debug level, each backed by a
// single pluggable sink callback:
//
//	(message, level, severity, file, function, line) -> void
//
// A no-op default is installed for every severity. The API surface
// (Infof/Warningf/Errorf/severity-per-call naming) is modeled on aistore's
// cmn/nlog, but the storage engine underneath is intentionally much
// simpler: sinks are pluggable callbacks, not a file rotation engine, so
// there is no buffering/flush/rotate machinery here.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
)

type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
	SevFatal
	SevMercury // dedicated native-transport-layer channel
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevFatal:
		return "FATAL"
	case SevMercury:
		return "MERCURY"
	default:
		return "UNKNOWN"
	}
}

// Sink is the pluggable per-severity callback. level is an optional
// verbosity sub-level (used only for the Debug channel); file/function/line
// identify the call site.
type Sink func(message string, level int, severity Severity, file, function string, line int)

var (
	mu    sync.Mutex
	sinks = map[Severity]Sink{
		SevInfo:    noop,
		SevWarning: noop,
		SevError:   noop,
		SevFatal:   noop,
		SevMercury: noop,
	}
	debugSink    atomic.Value // Sink
	verbose      atomic.Bool
	mirrorStderr atomic.Bool
)

func init() {
	debugSink.Store(Sink(noop))
}

func noop(string, int, Severity, string, string, int) {}

// SetSink installs the sink for a given severity; pass nil to restore the
// no-op default. Not meant to be called concurrently with logging from a
// hot path: this is one-shot setup, like set_mercury_log_function and
// its siblings.
func SetSink(sev Severity, fn Sink) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		fn = noop
	}
	sinks[sev] = fn
}

// SetDebugSink installs the sink backing Debugf/Debugln, independent of the
// five main severities.
func SetDebugSink(fn Sink) {
	if fn == nil {
		fn = noop
	}
	debugSink.Store(fn)
}

// SetVerbose toggles whether Debugf/Debugln calls reach their sink at all.
func SetVerbose(v bool) { verbose.Store(v) }

func Verbose() bool { return verbose.Load() }

// MirrorStderr additionally writes every logged line to os.Stderr; useful
// for example programs and tests that want visible output without wiring a
// custom sink.
func MirrorStderr(v bool) { mirrorStderr.Store(v) }

func caller(depth int) (file, function string, line int) {
	pc, f, l, ok := runtime.Caller(depth + 1)
	if !ok {
		return "?", "?", 0
	}
	fn := runtime.FuncForPC(pc)
	name := "?"
	if fn != nil {
		name = fn.Name()
	}
	return f, name, l
}

func dispatch(sev Severity, depth int, format string, args ...any) {
	var msg string
	switch {
	case format == "":
		msg = fmt.Sprint(args...)
	default:
		msg = fmt.Sprintf(format, args...)
	}
	file, fn, line := caller(depth + 2)

	mu.Lock()
	sink := sinks[sev]
	mu.Unlock()

	sink(msg, 0, sev, file, fn, line)
	if mirrorStderr.Load() {
		fmt.Fprintf(os.Stderr, "%s %s:%d %s: %s\n", sev, file, line, fn, msg)
	}
	if sev == SevFatal {
		os.Exit(1)
	}
}

func InfoDepth(depth int, args ...any) { dispatch(SevInfo, depth, "", args...) }
func Infoln(args ...any)               { dispatch(SevInfo, 0, "", args...) }
func Infof(format string, args ...any) { dispatch(SevInfo, 0, format, args...) }

func Warningln(args ...any)               { dispatch(SevWarning, 0, "", args...) }
func Warningf(format string, args ...any) { dispatch(SevWarning, 0, format, args...) }

func ErrorDepth(depth int, args ...any) { dispatch(SevError, depth, "", args...) }
func Errorln(args ...any)               { dispatch(SevError, 0, "", args...) }
func Errorf(format string, args ...any) { dispatch(SevError, 0, format, args...) }

func Fatalln(args ...any)               { dispatch(SevFatal, 0, "", args...) }
func Fatalf(format string, args ...any) { dispatch(SevFatal, 0, format, args...) }

// Mercuryln/Mercuryf are the dedicated native-transport-layer channel:
// original_source/logging.hpp keeps Mercury's own log lines separate from
// the application's so operators can filter transport noise independently.
func Mercuryln(args ...any)               { dispatch(SevMercury, 0, "", args...) }
func Mercuryf(format string, args ...any) { dispatch(SevMercury, 0, format, args...) }

func Debugf(format string, args ...any) {
	if !verbose.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	file, fn, line := caller(1)
	sink := debugSink.Load().(Sink)
	sink(msg, 1, SevInfo, file, fn, line)
	if mirrorStderr.Load() {
		fmt.Fprintf(os.Stderr, "DEBUG %s:%d %s: %s\n", file, line, fn, msg)
	}
}

func Debugln(args ...any) { Debugf("%s", fmt.Sprint(args...)) }
