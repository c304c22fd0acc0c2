// Package config parses the `initializationOptions` payload LSP clients
// send on `initialize` into a [Config]. No config file is read from disk.
//
// Editors commonly ship initializationOptions as JSONC (JSON with //
// and /* */ comments, and trailing commas), so this package strips
// comments via github.com/tidwall/jsonc before handing the result to
// encoding/json.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/rocqls/rocqls/internal/trace"
)

// Config is the coordinator's user-configurable behavior, sourced from
// initializationOptions (and, for ModuleRoot, the -module-root flag). Of
// its fields, the server acts only on TraceLevel.
type Config struct {
	// TraceLevel is the initial $/setTrace level ("off", "messages", or
	// "verbose"); internal/trace maps this onto LevelTrace gating.
	TraceLevel trace.Level `json:"traceLevel"`

	// ProverFlags holds prover flags from initializationOptions. They are
	// not passed to the prover: Init receives each workspace's own Flags.
	ProverFlags map[string]bool `json:"proverFlags"`

	// DiagnosticsLimit holds a per-document diagnostics limit, zero meaning
	// unlimited. It is parsed and stored but not enforced; every diagnostic
	// a document produces is published.
	DiagnosticsLimit int `json:"diagnosticsLimit"`

	// ModuleRoot holds a workspace-root path. It is stored but not used:
	// workspace roots come from the client's initialize and
	// workspace-folder notifications.
	ModuleRoot string `json:"moduleRoot"`
}

// Default returns the zero-configuration baseline: trace off, no forced
// prover flags, unlimited diagnostics.
func Default() Config {
	return Config{
		TraceLevel:       trace.LevelOff,
		ProverFlags:      map[string]bool{},
		DiagnosticsLimit: 0,
	}
}

// Parse decodes raw initializationOptions JSON (or JSONC) into a Config,
// starting from [Default] so an absent or partial payload still yields
// valid zero values for every field it doesn't mention.
//
// A nil or empty raw is not an error: `initializationOptions` is optional
// per the LSP spec.
func Parse(raw json.RawMessage) (Config, error) {
	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}

	stripped := jsonc.ToJSON(raw)
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse initializationOptions: %w", err)
	}
	return cfg, nil
}
