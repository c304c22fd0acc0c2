package lsp

import (
	"encoding/json"
	"log/slog"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/rocqls/rocqls/internal/config"
	"github.com/rocqls/rocqls/internal/trace"
	"github.com/rocqls/rocqls/internal/uri"
	"github.com/rocqls/rocqls/internal/workspace"
)

const serverName = "rocqls"

func (s *Server) handleInitialize(req *jsonrpc2.Request) any {
	var params protocol.InitializeParams
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}

	s.logger.Info("initialize request received")

	switch {
	case len(params.WorkspaceFolders) > 0:
		for _, folder := range params.WorkspaceFolders {
			s.addWorkspaceRoot(folder.URI)
		}
	case params.RootURI != nil:
		s.addWorkspaceRoot(*params.RootURI)
	case params.RootPath != nil:
		s.addWorkspaceRoot(*params.RootPath)
	}

	if req.Params != nil {
		var raw struct {
			InitializationOptions json.RawMessage `json:"initializationOptions"`
		}
		if err := json.Unmarshal(*req.Params, &raw); err == nil && len(raw.InitializationOptions) > 0 {
			if cfg, err := config.Parse(raw.InitializationOptions); err == nil {
				s.cfg = cfg
				s.traceLevel.Store(cfg.TraceLevel)
			} else {
				s.logger.Warn("invalid initializationOptions", slog.Any("error", err))
			}
		}
	}

	s.setState(stateRunning)

	syncKind := protocol.TextDocumentSyncKindFull
	version := "dev"
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: boolPtr(true),
				Change:    &syncKind,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", " "},
			},
			HoverProvider:          true,
			DefinitionProvider:     true,
			DocumentSymbolProvider: true,
			CodeLensProvider:       &protocol.CodeLensOptions{},
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
					Supported: boolPtr(true),
				},
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}
}

func (s *Server) addWorkspaceRoot(rawURI string) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		s.logger.Warn("ignoring malformed workspace root URI", slog.String("uri", rawURI), slog.Any("error", err))
		return
	}
	root := u.Path().String()

	ws, err := s.prover.WorkspaceGuess(root, nil)
	if err != nil {
		s.logger.Warn("workspace guess failed", slog.String("root", root), slog.Any("error", err))
		ws = workspace.Workspace{Root: root}
	}
	if err := s.prover.WorkspaceApply(u, ws); err != nil {
		s.logger.Warn("workspace apply failed", slog.String("root", root), slog.Any("error", err))
	}
	s.workspaces.Add(root, ws)
	s.logger.Info("workspace root added", slog.String("root", root))
}

func (s *Server) handleDidChangeWorkspaceFolders(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var params protocol.DidChangeWorkspaceFoldersParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		s.logger.Debug("malformed didChangeWorkspaceFolders", slog.Any("error", err))
		return
	}
	for _, added := range params.Event.Added {
		s.addWorkspaceRoot(added.URI)
	}
	for _, removed := range params.Event.Removed {
		if u, err := uri.Parse(removed.URI); err == nil {
			s.workspaces.Remove(u.Path().String())
		}
	}
}

func traceLevelFromWire(value string) trace.Level {
	switch value {
	case string(trace.LevelMessages):
		return trace.LevelMessages
	case string(trace.LevelVerbose):
		return trace.LevelVerbose
	default:
		return trace.LevelOff
	}
}

func boolPtr(b bool) *bool { return &b }
