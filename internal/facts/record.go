// Package facts asks a language model to turn article text into a
// structured funding record and persists one record file per article.
package facts

import "time"

// Metadata describes who raised from whom. Every field is always present in
// the serialized form, empty when unknown.
type Metadata struct {
	SourceType       string `json:"source_type"`
	SourceURL        string `json:"source_url"`
	StartupName      string `json:"startup_name"`
	InvestorName     string `json:"investor_name"`
	FundingStage     string `json:"funding_stage"`
	StartupLocation  string `json:"startup_location"`
	InvestorLocation string `json:"investor_location"`
}

// Map returns the metadata as a flat key/value map, the shape stored with
// indexed documents.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"source_type":       m.SourceType,
		"source_url":        m.SourceURL,
		"startup_name":      m.StartupName,
		"investor_name":     m.InvestorName,
		"funding_stage":     m.FundingStage,
		"startup_location":  m.StartupLocation,
		"investor_location": m.InvestorLocation,
	}
}

// Record is the structured result for one article. Either Error is empty
// and the summary and metadata are populated, or Error is set and the
// summary, evidence and metadata are empty.
type Record struct {
	StateSummary string    `json:"state_summary"`
	Evidence     []string  `json:"evidence"`
	Keywords     string    `json:"keywords"`
	Metadata     Metadata  `json:"metadata"`
	Confidence   float64   `json:"confidence"`
	ProcessedAt  time.Time `json:"processed_at"`
	Model        string    `json:"model"`
	Error        string    `json:"error,omitempty"`
	RawOutput    string    `json:"raw_output,omitempty"`
}

// Degraded reports whether the record is a fallback produced on failure.
func (r Record) Degraded() bool {
	return r.Error != ""
}

// fallback builds the degraded record for a failed extraction.
func fallback(reason, raw string) Record {
	return Record{
		Evidence:   []string{},
		Confidence: 0,
		Error:      reason,
		RawOutput:  raw,
	}
}
