package lsp

// handlerKind classifies a request method per spec.md §3's two Request
// shapes, plus immediate (lifecycle/notification) methods that never go
// through the Request Table.
type handlerKind int

const (
	// kindImmediate methods are served synchronously by dispatch without
	// consulting the Request Table: lifecycle requests and all
	// notifications.
	kindImmediate handlerKind = iota

	// kindPosition methods are PositionRequests, scoped to a document
	// position rather than requiring the whole document to be Done.
	kindPosition

	// kindDocument methods are DocumentRequests: they require the target
	// document's Completion to be Done before they can be served.
	kindDocument
)

// methodDescriptor is one row of the method table in spec.md §6.
type methodDescriptor struct {
	kind handlerKind

	// postpone applies only to kindPosition methods: whether admit() may
	// hold the request until the document reaches Done at (or past) the
	// requested version, rather than always serving it against whatever
	// state is current.
	postpone bool
}

// methodTable is the coordinator's JSON-RPC method registry, per spec.md
// §6's external interface table. Methods absent from this table that
// arrive as requests are rejected with CodeMethodNotFound; absent
// notifications are silently ignored, per the LSP spec's "unknown
// notifications must be ignored" rule.
var methodTable = map[string]methodDescriptor{
	"textDocument/hover":          {kind: kindPosition, postpone: false},
	"textDocument/completion":     {kind: kindPosition, postpone: true},
	"textDocument/definition":     {kind: kindPosition, postpone: true},
	"proof/goals":                 {kind: kindPosition, postpone: true},
	"textDocument/documentSymbol": {kind: kindDocument},
	"textDocument/codeLens":       {kind: kindDocument},
	"coq/getDocument":             {kind: kindDocument},
	"coq/saveVo":                  {kind: kindDocument},

	"initialize": {kind: kindImmediate},
	"shutdown":   {kind: kindImmediate},
}

// notificationMethods are the notifications dispatch recognizes. Anything
// else arriving as a notification is logged at Debug and otherwise
// ignored, matching LSP's "must be ignored" contract for unknown
// notifications.
var notificationMethods = map[string]bool{
	"initialized":                          true,
	"exit":                                 true,
	"$/setTrace":                           true,
	"$/cancelRequest":                      true,
	"workspace/didChangeWorkspaceFolders":  true,
	"textDocument/didOpen":                 true,
	"textDocument/didChange":               true,
	"textDocument/didClose":                true,
	"textDocument/didSave":                 true,
}
