package trace

import "log/slog"

// LevelTrace is below Debug, used for the high-volume per-message logging
// LSP's $/setTrace "verbose" mode asks for (every request/notification
// body), which would be too noisy even at Debug.
const LevelTrace = slog.Level(-8)

// Level is the $/setTrace trace level an LSP client negotiates.
type Level string

const (
	// LevelOff disables trace-level logging (but not Debug/Info/etc).
	LevelOff Level = "off"

	// LevelMessages logs one line per request/notification/response at
	// LevelTrace, without parameters.
	LevelMessages Level = "messages"

	// LevelVerbose additionally logs parameters and results.
	LevelVerbose Level = "verbose"
)

// SlogLevel reports whether trace-level logging should be enabled for l,
// as the minimum slog.Level a handler must accept to see trace output.
func (l Level) SlogLevel() slog.Level {
	if l == LevelOff || l == "" {
		return slog.LevelDebug + 1 // effectively disables LevelTrace records
	}
	return LevelTrace
}
