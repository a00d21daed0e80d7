package facts

import (
	"reflect"
	"testing"
)

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no braces", "nothing to see"},
		{"reversed braces", "} oops {"},
		{"invalid json", `{"state_summary": "a" "evidence": []}`},
		{"metadata not an object", `{"metadata": "none"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.raw)
			if p.OK() {
				t.Fatalf("expected malformed, got %+v", p.Record)
			}
			if p.Malformed.Raw != tt.raw {
				t.Errorf("raw = %q, want %q", p.Malformed.Raw, tt.raw)
			}
			if p.Malformed.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestParse_TolerantTypes(t *testing.T) {
	raw := `{
		"state_summary": "s",
		"evidence": "single fact",
		"keywords": ["fintech", "series a"],
		"metadata": {"startup_name": null, "funding_stage": 2, "investor_name": ["A", "B"]},
		"confidence": "0.75"
	}`
	p := Parse(raw)
	if !p.OK() {
		t.Fatalf("unexpected malformed: %s", p.Malformed.Reason)
	}
	r := p.Record
	if !reflect.DeepEqual(r.Evidence, []string{"single fact"}) {
		t.Errorf("evidence = %v", r.Evidence)
	}
	if r.Keywords != "fintech, series a" {
		t.Errorf("keywords = %q", r.Keywords)
	}
	if r.Metadata.StartupName != "" || r.Metadata.FundingStage != "2" || r.Metadata.InvestorName != "A, B" {
		t.Errorf("metadata = %+v", r.Metadata)
	}
	if r.Confidence != 0.75 {
		t.Errorf("confidence = %v", r.Confidence)
	}
}

func TestParse_ConfidenceClamped(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`{"confidence": 7}`, 1},
		{`{"confidence": -0.5}`, 0},
		{`{"confidence": "high"}`, 0},
		{`{"confidence": "0.4"}`, 0.4},
		{`{}`, 0},
	}
	for _, tt := range tests {
		p := Parse(tt.raw)
		if !p.OK() {
			t.Fatalf("%s: unexpected malformed: %s", tt.raw, p.Malformed.Reason)
		}
		if p.Record.Confidence != tt.want {
			t.Errorf("%s: confidence = %v, want %v", tt.raw, p.Record.Confidence, tt.want)
		}
	}
}

func TestParse_MissingEvidenceIsEmptyList(t *testing.T) {
	p := Parse(`{"state_summary": "x"}`)
	if !p.OK() {
		t.Fatal("unexpected malformed")
	}
	if p.Record.Evidence == nil || len(p.Record.Evidence) != 0 {
		t.Errorf("evidence = %#v, want empty non-nil", p.Record.Evidence)
	}
}
