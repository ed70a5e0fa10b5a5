// Package lsp speaks the Language Server Protocol over stdio. Editor
// overlays flow through the analysis session, which debounces, analyzes
// and delegates per document; results come back here and publish as
// protocol diagnostics. A custom weft/projection request hands clients
// the cleaned text and its mapping so they can run their own tooling.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.lsp.dev/protocol"

	"weft/internal/diag"
	"weft/internal/driver"
	"weft/internal/projection"
	"weft/internal/session"
	"weft/internal/workspace"
)

const serverName = "weft-lsp"

var (
	// ErrExit reports a clean exit after the shutdown handshake.
	ErrExit = errors.New("lsp exit")

	// ErrExitWithoutShutdown reports an exit notification that skipped
	// shutdown; callers usually map it to a non-zero status.
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures the server. The zero value serves with
// workspace discovery, the driver pipeline and session defaults.
type ServerOptions struct {
	// Config overrides workspace discovery at initialize.
	Config *workspace.Config

	// Analyze replaces the driver pipeline; tests inject fakes here.
	Analyze session.AnalyzeFunc

	// Debounce overrides both the session default and the workspace
	// debounce_ms setting.
	Debounce time.Duration

	// MaxDiagnostics caps what one analysis run may publish.
	MaxDiagnostics int

	// Version is reported to the client at initialize.
	Version string

	// Logf receives operational messages. Nil logs to stderr.
	Logf func(format string, args ...any)
}

// openDoc is the server's copy of one open document. Its text is what
// publish positions are computed against, so it must track the client's
// overlay exactly.
type openDoc struct {
	path    string
	text    string
	version int32
}

// Server handles stdio JSON-RPC for the weft language server.
type Server struct {
	in   *bufio.Reader
	out  *bufio.Writer
	opts ServerOptions

	sendMu sync.Mutex // one frame on out at a time

	mu        sync.Mutex
	docs      map[string]*openDoc // keyed by the client's URI verbatim
	published map[string]struct{} // URIs with diagnostics on screen
	cfg       *workspace.Config
	sess      *session.Session
	root      string
	shutdown  bool
}

func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	return &Server{
		in:        bufio.NewReader(in),
		out:       bufio.NewWriter(out),
		opts:      opts,
		docs:      make(map[string]*openDoc),
		published: make(map[string]struct{}),
		cfg:       opts.Config,
	}
}

// Run serves requests until the client disconnects or sends exit. The
// returned error is nil on EOF, ErrExit after a clean shutdown handshake
// and ErrExitWithoutShutdown when the client skipped it.
func (s *Server) Run(ctx context.Context) error {
	defer s.closeSession()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("bad frame: %v", err)
			continue
		}
		if msg.Method == "" {
			continue // response to a request we never sent
		}
		if err := s.handleMessage(&msg); err != nil {
			if errors.Is(err, ErrExit) || errors.Is(err, ErrExitWithoutShutdown) {
				return err
			}
			// A malformed notification must not kill the session for
			// every other document.
			s.logf("%s: %v", msg.Method, err)
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		clean := s.shutdown
		s.mu.Unlock()
		if clean {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "weft/projection":
		return s.handleProjection(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params protocol.InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid initialize params")
		}
	}
	root := resolveRoot(params)

	s.mu.Lock()
	s.root = root
	cfg := s.cfg
	s.mu.Unlock()

	if cfg == nil {
		discovered, err := workspace.Discover(root)
		if err != nil {
			s.logf("workspace config: %v", err)
			discovered = workspace.Default(root)
		}
		s.mu.Lock()
		if s.cfg == nil {
			s.cfg = discovered
		}
		s.mu.Unlock()
	}

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    serverName,
			Version: s.opts.Version,
		},
	}
	return s.sendResponse(msg.ID, result)
}

// resolveRoot picks the workspace root the way clients spell it: rootUri,
// then the deprecated rootPath, then the first workspace folder, then the
// process working directory.
func resolveRoot(params protocol.InitializeParams) string {
	if params.RootURI != "" {
		if p := uriToPath(string(params.RootURI)); p != "" {
			return p
		}
	}
	if params.RootPath != "" {
		if abs, err := filepath.Abs(params.RootPath); err == nil {
			return abs
		}
		return params.RootPath
	}
	for _, folder := range params.WorkspaceFolders {
		if p := uriToPath(folder.URI); p != "" {
			return p
		}
	}
	if abs, err := filepath.Abs("."); err == nil {
		return abs
	}
	return "."
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdown = true
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()
	if sess != nil {
		sess.Shutdown()
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("didOpen: %w", err)
	}
	item := params.TextDocument
	uri := string(item.URI)

	s.mu.Lock()
	s.docs[uri] = &openDoc{
		path:    uriToPath(uri),
		text:    item.Text,
		version: item.Version,
	}
	sess := s.ensureSessionLocked()
	s.mu.Unlock()

	if sess != nil {
		sess.Open(uri, item.Text, item.Version)
	}
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("didChange: %w", err)
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		s.mu.Unlock()
		return fmt.Errorf("didChange for closed document %s", uri)
	}
	doc.text = applyChanges(doc.text, params.ContentChanges)
	doc.version = params.TextDocument.Version
	text, version := doc.text, doc.version
	sess := s.ensureSessionLocked()
	s.mu.Unlock()

	if sess != nil {
		sess.Change(uri, text, version)
	}
	return nil
}

// handleDidSave re-runs analysis at the saved version. The overlay is
// already current, but sidecar schemas and included templates on disk may
// have changed since the last run.
func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("didSave: %w", err)
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		s.mu.Unlock()
		return nil
	}
	if params.Text != "" {
		doc.text = params.Text
	}
	text, version := doc.text, doc.version
	sess := s.ensureSessionLocked()
	s.mu.Unlock()

	if sess != nil {
		sess.Change(uri, text, version)
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("didClose: %w", err)
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	delete(s.docs, uri)
	sess := s.sess
	s.mu.Unlock()

	if sess != nil {
		sess.Close(uri)
	}
	return nil
}

// ensureSessionLocked builds the session on first use. Sessions need the
// workspace config, which may only arrive at initialize, so construction
// waits for the first document instead of happening in NewServer.
func (s *Server) ensureSessionLocked() *session.Session {
	if s.shutdown {
		return nil
	}
	if s.sess == nil {
		s.sess = s.buildSessionLocked()
	}
	return s.sess
}

func (s *Server) buildSessionLocked() *session.Session {
	debounce := s.opts.Debounce
	if debounce <= 0 && s.cfg != nil {
		debounce = s.cfg.Debounce()
	}
	var budgetCap time.Duration
	if s.cfg != nil {
		budgetCap = s.cfg.TimeoutCap()
	}
	analyze := s.opts.Analyze
	if analyze == nil {
		analyze = s.analyze
	}
	return session.New(session.Config{
		Analyze:        analyze,
		Publish:        s.publishDiagnostics,
		Linters:        buildLinters(s.cfg, s.logf),
		Debounce:       debounce,
		BudgetCap:      budgetCap,
		MaxDiagnostics: s.opts.MaxDiagnostics,
		Logf:           s.logf,
	})
}

func (s *Server) closeSession() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()
	if sess != nil {
		sess.Shutdown()
	}
}

// analyze is the production pipeline: the full driver run over the overlay
// text, with a snapshot so the session can delegate host-format linting.
func (s *Server) analyze(ctx context.Context, uri, text string) (*projection.Snapshot, []diag.Diagnostic, error) {
	path := uriToPath(uri)
	if path == "" {
		path = uri
	}
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if cfg == nil {
		cfg = workspace.Default(filepath.Dir(path))
	}

	res := driver.CheckText(ctx, path, []byte(text), driver.Options{
		Config:         cfg,
		Project:        true,
		MaxDiagnostics: s.opts.MaxDiagnostics,
	})
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return res.Snapshot, res.Bag.Items(), nil
}

// publishDiagnostics is the session's publish hook. Positions are computed
// over the server's copy of the document, so results for a superseded
// version are dropped; the edit that superseded them has its own run
// scheduled. Empty results only go out when the document had diagnostics
// on screen.
func (s *Server) publishDiagnostics(uri string, version int32, diags []diag.Diagnostic) {
	s.mu.Lock()
	doc := s.docs[uri]
	current := doc != nil && doc.version == version
	text := ""
	if current {
		text = doc.text
	}
	_, hadDiagnostics := s.published[uri]
	if len(diags) == 0 {
		delete(s.published, uri)
	} else if current {
		s.published[uri] = struct{}{}
	}
	s.mu.Unlock()

	if len(diags) == 0 {
		if !hadDiagnostics {
			return
		}
		if err := s.sendPublish(uri, version, nil); err != nil {
			s.logf("clear diagnostics for %s: %v", uri, err)
		}
		return
	}
	if !current {
		return
	}
	if err := s.sendPublish(uri, version, convertDiagnostics(uri, text, diags)); err != nil {
		s.logf("publish diagnostics for %s: %v", uri, err)
	}
}

// convertDiagnostics maps engine diagnostics onto the wire model. Notes
// become related information when they point into the same document;
// spans into included files have no overlay to resolve against.
func convertDiagnostics(uri, text string, diags []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		pd := protocol.Diagnostic{
			Range:    rangeForSpan(text, d.Primary),
			Severity: protocolSeverity(d.Severity),
			Code:     d.Code.ID(),
			Source:   diagnosticSource(d),
			Message:  d.Message,
		}
		for _, note := range d.Notes {
			if note.Span.File != d.Primary.File {
				continue
			}
			pd.RelatedInformation = append(pd.RelatedInformation, protocol.DiagnosticRelatedInformation{
				Location: protocol.Location{
					URI:   protocol.DocumentURI(uri),
					Range: rangeForSpan(text, note.Span),
				},
				Message: note.Msg,
			})
		}
		out = append(out, pd)
	}
	return out
}

func protocolSeverity(sev diag.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diag.SevWarning:
		return protocol.DiagnosticSeverityWarning
	case diag.SevInfo:
		return protocol.DiagnosticSeverityInformation
	case diag.SevHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

func diagnosticSource(d diag.Diagnostic) string {
	if d.IsEngine() {
		return "weft"
	}
	return d.Source
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   rpcError{Code: code, Message: message},
	})
}

func (s *Server) sendPublish(uri string, version int32, list []protocol.Diagnostic) error {
	if list == nil {
		list = []protocol.Diagnostic{}
	}
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": protocol.PublishDiagnosticsParams{
			URI:         protocol.DocumentURI(uri),
			Version:     safeUint32(int(version)),
			Diagnostics: list,
		},
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	if s.opts.Logf != nil {
		s.opts.Logf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}
