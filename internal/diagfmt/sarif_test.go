package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"weft/internal/diag"
	"weft/internal/source"
)

func decodeSarif(t *testing.T, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) sarifLog {
	t.Helper()
	var buf bytes.Buffer
	if err := Sarif(&buf, bag, fs, meta); err != nil {
		t.Fatalf("Sarif: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("round-trip: %v\n%s", err, buf.String())
	}
	return log
}

func TestSarifLogShape(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/work")
	id := fs.AddVirtual("/work/doc.json.weft", []byte(`{"a": {{ title }}}`))

	d := diag.NewError(diag.SemaUndefinedVariable,
		source.Span{File: id, Start: 6, End: 17}, `unknown name "title"`).
		WithNote(source.Span{File: id, Start: 0, End: 1}, "document starts here")

	meta := SarifRunMeta{
		ToolName:       "weft",
		ToolVersion:    "0.3.0",
		InvocationArgs: []string{"check", "doc.json.weft", "--sarif"},
	}
	log := decodeSarif(t, singleDiag(d), fs, meta)

	if log.Version != "2.1.0" || !strings.Contains(log.Schema, "sarif-2.1.0") {
		t.Errorf("version/schema = %s / %s", log.Version, log.Schema)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("runs = %d", len(log.Runs))
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "weft" || run.Tool.Driver.Version != "0.3.0" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}
	if len(run.Tool.Driver.Rules) != 1 || run.Tool.Driver.Rules[0].ID != "UNDEFINED_VARIABLE" {
		t.Errorf("rules = %+v", run.Tool.Driver.Rules)
	}
	if len(run.Invocations) != 1 || len(run.Invocations[0].Arguments) != 3 {
		t.Errorf("invocations = %+v", run.Invocations)
	}

	if len(run.Results) != 1 {
		t.Fatalf("results = %d", len(run.Results))
	}
	res := run.Results[0]
	if res.RuleID != "UNDEFINED_VARIABLE" || res.Level != "error" {
		t.Errorf("ruleId/level = %s/%s", res.RuleID, res.Level)
	}
	if res.Message.Text != `unknown name "title"` {
		t.Errorf("message = %q", res.Message.Text)
	}

	if len(res.Locations) != 1 {
		t.Fatalf("locations = %+v", res.Locations)
	}
	phys := res.Locations[0].PhysicalLocation
	if phys.ArtifactLocation.URI != "doc.json.weft" {
		t.Errorf("uri = %q", phys.ArtifactLocation.URI)
	}
	if phys.Region.StartLine != 1 || phys.Region.StartColumn != 7 || phys.Region.EndColumn != 18 {
		t.Errorf("region = %+v", phys.Region)
	}

	if len(res.RelatedLocations) != 1 {
		t.Fatalf("relatedLocations = %+v", res.RelatedLocations)
	}
	rel := res.RelatedLocations[0]
	if rel.Message == nil || rel.Message.Text != "document starts here" {
		t.Errorf("related message = %+v", rel.Message)
	}
}

func TestSarifLevelMapping(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte("{{ a }}\n"))
	span := source.Span{File: id, Start: 0, End: 7}

	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.SemaUndefinedVariable, span, "e"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaShadowedVariable, span, "w"))
	bag.Add(diag.New(diag.SevInfo, diag.SemaTruthyCondition, span, "i"))
	bag.Add(diag.New(diag.SevHint, diag.SemaUnusedVariable, span, "h"))

	log := decodeSarif(t, bag, fs, SarifRunMeta{})
	want := []string{"error", "warning", "note", "note"}
	results := log.Runs[0].Results
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	for i, lvl := range want {
		if results[i].Level != lvl {
			t.Errorf("results[%d].level = %s, want %s", i, results[i].Level, lvl)
		}
	}
}

func TestSarifExecutionSuccessful(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte("{{ a }}\n"))
	span := source.Span{File: id, Start: 0, End: 7}

	clean := diag.NewBag(10)
	clean.Add(diag.New(diag.SevWarning, diag.SemaShadowedVariable, span, "w"))
	if log := decodeSarif(t, clean, fs, SarifRunMeta{}); !log.Runs[0].Invocations[0].ExecutionSuccessful {
		t.Error("warnings alone should leave the run successful")
	}

	failed := diag.NewBag(10)
	failed.Add(diag.NewError(diag.SemaUndefinedVariable, span, "e"))
	if log := decodeSarif(t, failed, fs, SarifRunMeta{}); log.Runs[0].Invocations[0].ExecutionSuccessful {
		t.Error("errors should mark the run unsuccessful")
	}
}

func TestSarifDelegatedSourceProperty(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.yaml.weft", []byte("a: 1\n"))

	bag := singleDiag(diag.New(diag.SevWarning, diag.UnknownCode,
		source.Span{File: id, Start: 0, End: 4}, "truthy value").
		WithSource("yamllint"))

	log := decodeSarif(t, bag, fs, SarifRunMeta{})
	res := log.Runs[0].Results[0]
	if res.Properties["source"] != "yamllint" {
		t.Errorf("properties = %+v", res.Properties)
	}
}

func TestSarifRulesDeduplicated(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.weft", []byte("{{ a }}{{ b }}\n"))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUndefinedVariable, source.Span{File: id, Start: 0, End: 7}, "a"))
	bag.Add(diag.NewError(diag.SemaUndefinedVariable, source.Span{File: id, Start: 7, End: 14}, "b"))
	bag.Add(diag.NewError(diag.SemaIncludeCycle, source.Span{File: id, Start: 0, End: 1}, "cycle"))

	log := decodeSarif(t, bag, fs, SarifRunMeta{})
	rules := log.Runs[0].Tool.Driver.Rules
	if len(rules) != 2 {
		t.Fatalf("rules = %+v", rules)
	}
	// sorted by id
	if rules[0].ID != "INCLUDE_CYCLE" || rules[1].ID != "UNDEFINED_VARIABLE" {
		t.Errorf("rule order = %+v", rules)
	}
}
