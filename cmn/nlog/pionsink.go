package nlog

import "github.com/pion/logging"

// LeveledLoggerSink adapts a pion/logging.LeveledLogger (as used by
// backkem-matter's transport stack in the retrieval pack) into a set of
// nlog sinks, for hosts that already standardized on pion's logging
// factory and want Hermes's severities to flow into the same place.
func LeveledLoggerSink(l logging.LeveledLogger) Sink {
	return func(message string, _ int, severity Severity, _, _ string, _ int) {
		switch severity {
		case SevInfo, SevMercury:
			l.Info(message)
		case SevWarning:
			l.Warn(message)
		case SevError, SevFatal:
			l.Error(message)
		}
	}
}

// InstallLeveledLogger wires every severity (and the debug channel) through
// a single pion/logging.LeveledLogger.
func InstallLeveledLogger(l logging.LeveledLogger) {
	sink := LeveledLoggerSink(l)
	SetSink(SevInfo, sink)
	SetSink(SevWarning, sink)
	SetSink(SevError, sink)
	SetSink(SevFatal, sink)
	SetSink(SevMercury, sink)
	SetDebugSink(func(message string, _ int, _ Severity, _, _ string, _ int) {
		l.Debug(message)
	})
}
