package lsp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.lsp.dev/protocol"

	"weft/internal/driver"
	"weft/internal/workspace"
)

// projectionParams asks for the cleaned view of one document. Format pins
// the host format instead of detecting it.
type projectionParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Format       string                          `json:"format,omitempty"`
}

// projectionResult is the answer to a weft/projection request. Offsets are
// bytes; clients map their own tool output back through Mapping.
type projectionResult struct {
	CleanedText string              `json:"cleanedText"`
	FormatHint  string              `json:"formatHint"`
	Mapping     []projectionSegment `json:"mapping"`
}

type projectionSegment struct {
	CleanedStart  uint32 `json:"cleanedStart"`
	CleanedEnd    uint32 `json:"cleanedEnd"`
	OriginalStart uint32 `json:"originalStart"`
	OriginalEnd   uint32 `json:"originalEnd"`
	Elided        bool   `json:"elided,omitempty"`
}

// handleProjection projects the overlay when the document is open and the
// on-disk content otherwise.
func (s *Server) handleProjection(msg *rpcMessage) error {
	var params projectionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid projection params")
	}
	uri := string(params.TextDocument.URI)

	s.mu.Lock()
	doc := s.docs[uri]
	cfg := s.cfg
	s.mu.Unlock()

	var path string
	var text []byte
	if doc != nil {
		path = doc.path
		text = []byte(doc.text)
	} else {
		path = uriToPath(uri)
		if path == "" {
			return s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("%s is not an open document or file", uri))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return s.sendError(msg.ID, codeInvalidParams, err.Error())
		}
		text = data
	}
	if path == "" {
		path = uri
	}
	if cfg == nil {
		cfg = workspace.Default(filepath.Dir(path))
	}

	res := driver.ProjectText(path, text, driver.Options{
		Config:         cfg,
		Format:         params.Format,
		MaxDiagnostics: s.opts.MaxDiagnostics,
	})
	snap := res.Snapshot

	result := projectionResult{
		CleanedText: snap.Cleaned,
		FormatHint:  string(snap.Format),
		Mapping:     make([]projectionSegment, 0, len(snap.Segments)),
	}
	for _, seg := range snap.Segments {
		result.Mapping = append(result.Mapping, projectionSegment{
			CleanedStart:  seg.Cleaned.Start,
			CleanedEnd:    seg.Cleaned.End,
			OriginalStart: seg.Original.Start,
			OriginalEnd:   seg.Original.End,
			Elided:        seg.Elided,
		})
	}
	return s.sendResponse(msg.ID, result)
}
