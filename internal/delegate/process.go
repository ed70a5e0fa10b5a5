package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"weft/internal/diag"
	"weft/internal/projection"
	"weft/internal/source"
)

// ProcessConfig describes the language server a ProcessLinter drives.
type ProcessConfig struct {
	// Name tags findings and cache entries; defaults to Command.
	Name    string
	Command string
	Args    []string
	RootDir string

	// LanguageID overrides the id derived from the request format.
	LanguageID string
}

// ProcessLinter runs a stdio language server and lints by opening cleaned
// documents in it, then collecting what it publishes.
type ProcessLinter struct {
	cfg    ProcessConfig
	cmd    *exec.Cmd
	conn   *jsonrpc2.Conn
	cancel context.CancelFunc

	mu      sync.Mutex
	opened  map[protocol.DocumentURI]bool
	publish map[protocol.DocumentURI]publishState
}

type publishState struct {
	seq   uint64
	diags []protocol.Diagnostic
}

// NewProcessLinter spawns the configured server and runs the initialize
// handshake. The returned linter owns the process until Close.
func NewProcessLinter(cfg ProcessConfig) (*ProcessLinter, error) {
	if cfg.Command == "" {
		return nil, errors.New("delegate: linter command is required")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}
	root := cfg.RootDir
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = root

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	l := &ProcessLinter{
		cfg:     cfg,
		cmd:     cmd,
		cancel:  cancel,
		opened:  make(map[protocol.DocumentURI]bool),
		publish: make(map[protocol.DocumentURI]publishState),
	}

	stream := jsonrpc2.NewBufferedStream(stdioPipe{reader: stdout, writer: stdin}, jsonrpc2.VSCodeObjectCodec{})
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		if req.Method != "textDocument/publishDiagnostics" || req.Params == nil {
			return nil, nil
		}
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		l.mu.Lock()
		st := l.publish[params.URI]
		st.seq++
		st.diags = params.Diagnostics
		l.publish[params.URI] = st
		l.mu.Unlock()
		return nil, nil
	})
	l.conn = jsonrpc2.NewConn(ctx, stream, handler)

	go func() { _, _ = io.Copy(os.Stderr, stderr) }()

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("delegate: start %s: %w", cfg.Command, err)
	}
	if err := l.initialize(ctx, root); err != nil {
		cancel()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("delegate: initialize %s: %w", cfg.Command, err)
	}
	return l, nil
}

func (l *ProcessLinter) initialize(ctx context.Context, root string) error {
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   protocol.DocumentURI(PathToURI(root)),
		ClientInfo: &protocol.ClientInfo{
			Name: "weft",
		},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{},
			},
		},
	}
	var result protocol.InitializeResult
	if err := l.conn.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	return l.conn.Notify(ctx, "initialized", &protocol.InitializedParams{})
}

func (l *ProcessLinter) Name() string { return l.cfg.Name }

// Lint sends the cleaned text as a document open or change and waits for the
// next diagnostics publish for that document. The context carries the time
// budget; on expiry the caller degrades to engine-only findings.
func (l *ProcessLinter) Lint(ctx context.Context, req Request) ([]diag.Diagnostic, error) {
	uri := protocol.DocumentURI(req.URI)

	l.mu.Lock()
	seen := l.publish[uri].seq
	open := l.opened[uri]
	l.opened[uri] = true
	l.mu.Unlock()

	if open {
		err := l.conn.Notify(ctx, "textDocument/didChange", protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                req.Version,
			},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: req.Text}},
		})
		if err != nil {
			return nil, err
		}
	} else {
		err := l.conn.Notify(ctx, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{
				URI:        uri,
				LanguageID: l.languageID(req.Format),
				Version:    req.Version,
				Text:       req.Text,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	published, err := l.waitPublish(ctx, uri, seen)
	if err != nil {
		return nil, err
	}
	return convertDiagnostics(published, req.Text, l.cfg.Name), nil
}

// waitPublish blocks until a publish newer than seen arrives for uri.
func (l *ProcessLinter) waitPublish(ctx context.Context, uri protocol.DocumentURI, seen uint64) ([]protocol.Diagnostic, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		l.mu.Lock()
		st := l.publish[uri]
		l.mu.Unlock()
		if st.seq > seen {
			return st.diags, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *ProcessLinter) languageID(format projection.Format) protocol.LanguageIdentifier {
	if l.cfg.LanguageID != "" {
		return protocol.LanguageIdentifier(l.cfg.LanguageID)
	}
	if format == projection.FormatText {
		return "plaintext"
	}
	return protocol.LanguageIdentifier(format)
}

// Close shuts the server down politely, then makes sure the process is gone.
func (l *ProcessLinter) Close() error {
	if l == nil {
		return nil
	}
	if l.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		_ = l.conn.Call(ctx, "shutdown", nil, nil)
		_ = l.conn.Notify(ctx, "exit", nil)
		cancel()
		_ = l.conn.Close()
	}
	if l.cancel != nil {
		l.cancel()
	}
	if l.cmd != nil && l.cmd.Process != nil {
		_ = l.cmd.Process.Kill()
		_, _ = l.cmd.Process.Wait()
	}
	return nil
}

// convertDiagnostics turns LSP diagnostics into the engine model, with spans
// as byte offsets into the cleaned text. LSP columns count UTF-16 units;
// treating them as bytes is exact for ASCII and a documented approximation
// beyond it.
func convertDiagnostics(in []protocol.Diagnostic, cleaned, linter string) []diag.Diagnostic {
	if len(in) == 0 {
		return nil
	}
	idx := source.NewLineIndex([]byte(cleaned))
	out := make([]diag.Diagnostic, 0, len(in))
	for _, d := range in {
		start := idx.OffsetAt(source.LineCol{Line: d.Range.Start.Line, Col: d.Range.Start.Character})
		end := idx.OffsetAt(source.LineCol{Line: d.Range.End.Line, Col: d.Range.End.Character})
		if end < start {
			end = start
		}
		out = append(out, diag.Diagnostic{
			Severity: convertSeverity(d.Severity),
			Code:     diag.UnknownCode,
			Message:  d.Message,
			Primary:  source.Span{Start: start, End: end},
			Source:   linter,
		})
	}
	return out
}

func convertSeverity(s protocol.DiagnosticSeverity) diag.Severity {
	switch int(s) {
	case 2:
		return diag.SevWarning
	case 3:
		return diag.SevInfo
	case 4:
		return diag.SevHint
	default:
		// Servers that omit severity mean it the strong way.
		return diag.SevError
	}
}

// stdioPipe joins the child's stdout and stdin into one stream.
type stdioPipe struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s stdioPipe) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s stdioPipe) Write(p []byte) (int, error) { return s.writer.Write(p) }

func (s stdioPipe) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}

// PathToURI renders a filesystem path as a file URI for Request.URI.
func PathToURI(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return "file://" + path
	}
	return "file:///" + path
}
