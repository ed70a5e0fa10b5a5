package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"weft/internal/diag"
	"weft/internal/source"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID string `json:"id"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifResult struct {
	RuleID           string            `json:"ruleId"`
	Level            string            `json:"level"`
	Message          sarifMessage      `json:"message"`
	Locations        []sarifLocation   `json:"locations,omitempty"`
	RelatedLocations []sarifLocation   `json:"relatedLocations,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn,omitempty"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
}

// Sarif writes diagnostics as a SARIF 2.1.0 log with a single run. Errors
// and warnings keep their level, hints and infos become "note"; diagnostic
// notes turn into relatedLocations; findings from a delegated linter carry
// its name in the result properties.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	results := make([]sarifResult, 0, bag.Len())
	ruleSet := make(map[string]struct{})

	for _, d := range bag.Items() {
		id := d.Code.ID()
		ruleSet[id] = struct{}{}

		res := sarifResult{
			RuleID:  id,
			Level:   sarifLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
		}
		if loc, ok := sarifLocate(fs, d.Primary); ok {
			res.Locations = []sarifLocation{loc}
		}
		for _, note := range d.Notes {
			loc, ok := sarifLocate(fs, note.Span)
			if !ok {
				continue
			}
			msg := sarifMessage{Text: note.Msg}
			loc.Message = &msg
			res.RelatedLocations = append(res.RelatedLocations, loc)
		}
		if !d.IsEngine() {
			res.Properties = map[string]string{"source": d.Source}
		}
		results = append(results, res)
	}

	ruleIDs := make([]string, 0, len(ruleSet))
	for id := range ruleSet {
		ruleIDs = append(ruleIDs, id)
	}
	slices.Sort(ruleIDs)
	rules := make([]sarifRule, 0, len(ruleSet))
	for _, id := range ruleIDs {
		rules = append(rules, sarifRule{ID: id})
	}

	name := meta.ToolName
	if name == "" {
		name = "weft"
	}
	log := sarifLog{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    name,
				Version: meta.ToolVersion,
				Rules:   rules,
			}},
			Invocations: []sarifInvocation{{
				Arguments:           meta.InvocationArgs,
				ExecutionSuccessful: !bag.HasErrors(),
			}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

func sarifLocate(fs *source.FileSet, span source.Span) (sarifLocation, bool) {
	loc, ok := locate(fs, span, PathModeRelative)
	if !ok {
		return sarifLocation{}, false
	}
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: sarifURI(loc.path)},
			Region: sarifRegion{
				StartLine:   loc.start.Line + 1,
				StartColumn: loc.start.Col + 1,
				EndLine:     loc.end.Line + 1,
				EndColumn:   loc.end.Col + 1,
			},
		},
	}, true
}

// sarifURI renders a path as a SARIF artifact URI: relative paths stay
// relative with forward slashes, absolute ones gain a file scheme.
func sarifURI(path string) string {
	p := filepath.ToSlash(path)
	if strings.HasPrefix(p, "/") {
		return "file://" + p
	}
	return p
}
