package codebase

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/accparse/openacc/parser"
	"github.com/dhamidi/accparse/openacc/scanner"
	"github.com/dhamidi/accparse/project"
)

const lsName = "accparse"

var lspLog = commonlog.GetLogger("accparse.lsp")

type LSPServer struct {
	codebase *Codebase
	watcher  *FileWatcher
	handler  protocol.Handler
	server   *server.Server
	version  string

	mu     sync.Mutex
	open   map[string]bool
	notify glsp.NotifyFunc

	// PollInterval is how often the watcher looks for changes on disk.
	PollInterval time.Duration
}

func NewLSPServer(version string) *LSPServer {
	ls := &LSPServer{
		version:      version,
		open:         make(map[string]bool),
		PollInterval: 2 * time.Second,
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentHover:          ls.textDocumentHover,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
		TextDocumentCompletion:     ls.textDocumentCompletion,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) RunTCP(address string) error {
	return ls.server.RunTCP(address)
}

func (ls *LSPServer) RunWebSocket(address string) error {
	return ls.server.RunWebSocket(address)
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	p, err := project.LoadFrom(rootDir)
	if err != nil {
		lspLog.Warningf("using defaults: %v", err)
		p = &project.Project{RootDir: rootDir, Config: project.DefaultConfig()}
	}
	ls.codebase = New(p)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    intPtr(int(protocol.TextDocumentSyncKindFull)),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{" "},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	ls.mu.Lock()
	ls.notify = ctx.Notify
	ls.mu.Unlock()

	ls.watcher = NewFileWatcher(ls.codebase, ls.PollInterval)
	ls.watcher.OnChange = ls.fileChanged
	ls.watcher.Start()
	return nil
}

// fileChanged publishes diagnostics for files changed on disk. Files open
// in the editor are published from their buffer instead.
func (ls *LSPServer) fileChanged(path string, removed bool) {
	ls.mu.Lock()
	notify, open := ls.notify, ls.open[path]
	ls.mu.Unlock()
	if notify == nil || open {
		return
	}
	var diags []scanner.Diagnostic
	if !removed {
		diags = ls.codebase.Diagnostics(path)
	}
	publishDiagnostics(notify, pathToURI(path), diags)
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	if ls.watcher != nil {
		ls.watcher.Stop()
		ls.watcher = nil
	}
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) update(ctx *glsp.Context, uri string, content []byte) {
	path, err := uriToPath(uri)
	if err != nil {
		return
	}
	ls.codebase.UpdateFile(path, content)
	publishDiagnostics(ctx.Notify, uri, ls.codebase.Diagnostics(path))
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	if path, err := uriToPath(params.TextDocument.URI); err == nil {
		ls.mu.Lock()
		ls.open[path] = true
		ls.mu.Unlock()
	}
	ls.update(ctx, params.TextDocument.URI, []byte(params.TextDocument.Text))
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.update(ctx, params.TextDocument.URI, []byte(textChange.Text))
		}
	}
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.mu.Lock()
	delete(ls.open, path)
	ls.mu.Unlock()
	if err := ls.codebase.ScanFile(path); err != nil {
		ls.codebase.RemoveFile(path)
	}
	publishDiagnostics(ctx.Notify, params.TextDocument.URI, nil)
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if params.Text != nil {
		ls.update(ctx, params.TextDocument.URI, []byte(*params.Text))
	} else if err := ls.codebase.ScanFile(path); err == nil {
		publishDiagnostics(ctx.Notify, params.TextDocument.URI, ls.codebase.Diagnostics(path))
	}
	return nil
}

func (ls *LSPServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	line := int(params.Position.Line) + 1
	col := int(params.Position.Character) + 1

	nodes := ls.codebase.NodesAt(path, line, col)
	if len(nodes) == 0 {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: hoverText(nodes),
		},
	}, nil
}

// hoverText describes the innermost branch of nodes and the path of kinds
// leading to it.
func hoverText(nodes []parser.Node) string {
	var inner *parser.Branch
	var kinds []string
	for _, n := range nodes {
		kinds = append(kinds, n.Kind().String())
		if b, ok := n.(*parser.Branch); ok {
			inner = b
		}
	}
	var sb strings.Builder
	if inner != nil {
		fmt.Fprintf(&sb, "**%s**", inner.Kind())
		if names := inner.Caps().Names(); len(names) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(names, ", "))
		}
		sb.WriteString("\n\n")
		if info := inner.ErrorInfo(); info != nil {
			fmt.Fprintf(&sb, "%s\n\n", info.Message())
		}
	}
	fmt.Fprintf(&sb, "`%s`", strings.Join(kinds, " › "))
	return sb.String()
}

func (ls *LSPServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	f := ls.codebase.GetFile(path)
	if f == nil {
		return nil, nil
	}
	return documentSymbols(f), nil
}

// documentSymbols lists one symbol per pragma, with its clauses as
// children.
func documentSymbols(f *FileInfo) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	for _, p := range f.Pragmas {
		lines := strings.Split(p.Text, "\n")
		whole := protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(p.Line - 1)},
			End: protocol.Position{
				Line:      protocol.UInteger(p.Line - 1 + len(lines) - 1),
				Character: protocol.UInteger(len(lines[len(lines)-1])),
			},
		}
		sym := protocol.DocumentSymbol{
			Name:           "invalid pragma",
			Kind:           protocol.SymbolKindNull,
			Range:          whole,
			SelectionRange: whole,
		}
		b, ok := p.Root.(*parser.Branch)
		if !ok || p.Err != nil {
			symbols = append(symbols, sym)
			continue
		}
		sym.Name = directiveName(b)
		detail := b.Kind().String()
		sym.Detail = &detail
		sym.Kind = protocol.SymbolKindEvent
		if b.Caps().Has(parser.CapAssociated) {
			sym.Kind = protocol.SymbolKindNamespace
		}
		if tok := parser.FindFirstToken(b); tok != nil {
			sym.SelectionRange = tokenRange(tok, tok)
		}
		for _, n := range parser.FindAll(b, parser.HasCap(parser.CapClause)) {
			first, last := parser.FindFirstToken(n), parser.FindLastToken(n)
			if first == nil {
				continue
			}
			r := tokenRange(first, last)
			sym.Children = append(sym.Children, protocol.DocumentSymbol{
				Name:           strings.TrimSpace(strings.TrimPrefix(n.String(), first.WhiteBefore)),
				Kind:           protocol.SymbolKindProperty,
				Range:          r,
				SelectionRange: r,
			})
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

// directiveName joins the words naming a directive, such as "enter data".
func directiveName(b *parser.Branch) string {
	var words []string
	for _, field := range b.Layout().Fields[1:] {
		if field == "clauses" || field == "clause" || field == "lparen" {
			break
		}
		if tok := b.Token(field); tok != nil {
			words = append(words, tok.Literal)
		}
	}
	if len(words) == 0 {
		return b.Kind().String()
	}
	return strings.Join(words, " ")
}

func tokenRange(first, last *parser.Token) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      protocol.UInteger(first.Span.Start.Line - 1),
			Character: protocol.UInteger(first.Span.Start.Column - 1),
		},
		End: protocol.Position{
			Line:      protocol.UInteger(last.Span.End.Line - 1),
			Character: protocol.UInteger(last.Span.End.Column - 1),
		},
	}
}

func (ls *LSPServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}

	line := int(params.Position.Line) + 1
	col := int(params.Position.Character) + 1

	completions := ls.codebase.CompletionsAtPoint(path, line, col)
	if len(completions) == 0 {
		return nil, nil
	}

	var items []protocol.CompletionItem
	for _, c := range completions {
		kind := toProtocolKind(c.Kind)
		detail := c.Detail
		insertText := c.InsertText
		format := protocol.InsertTextFormatSnippet

		items = append(items, protocol.CompletionItem{
			Label:            c.Label,
			Kind:             &kind,
			Detail:           &detail,
			InsertText:       &insertText,
			InsertTextFormat: &format,
		})
	}

	return items, nil
}

func toProtocolKind(kind CompletionKind) protocol.CompletionItemKind {
	switch kind {
	case CompletionKindDirective:
		return protocol.CompletionItemKindKeyword
	case CompletionKindClause:
		return protocol.CompletionItemKindProperty
	default:
		return protocol.CompletionItemKindText
	}
}

func publishDiagnostics(notify glsp.NotifyFunc, uri string, diags []scanner.Diagnostic) {
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocolDiagnostics(diags),
	})
}

func toProtocolDiagnostics(diags []scanner.Diagnostic) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	source := lsName
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityWarning
		if d.Severity == scanner.SeverityError {
			severity = protocol.DiagnosticSeverityError
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(d.Line - 1), Character: protocol.UInteger(d.Column - 1)},
				End:   protocol.Position{Line: protocol.UInteger(d.EndLine - 1), Character: protocol.UInteger(d.EndColumn - 1)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *protocol.TextDocumentSyncKind {
	v := protocol.TextDocumentSyncKind(i)
	return &v
}
