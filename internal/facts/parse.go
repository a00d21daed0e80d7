package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Malformed describes a model reply that could not be turned into a Record.
type Malformed struct {
	Raw    string
	Reason string
}

// Parsed is the outcome of Parse: exactly one of Record (when Malformed is
// nil) or Malformed is meaningful.
type Parsed struct {
	Record    Record
	Malformed *Malformed
}

// OK reports whether parsing produced a record.
func (p Parsed) OK() bool {
	return p.Malformed == nil
}

// Parse extracts a Record from a model reply. It takes the span from the
// first "{" to the last "}" so commentary around the object is ignored, and
// tolerates loosely typed fields. It never panics.
func Parse(raw string) (p Parsed) {
	defer func() {
		if r := recover(); r != nil {
			p = Parsed{Malformed: &Malformed{Raw: raw, Reason: fmt.Sprintf("parse panic: %v", r)}}
		}
	}()

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Parsed{Malformed: &Malformed{Raw: raw, Reason: "no JSON object detected in model output"}}
	}

	var rr rawRecord
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rr); err != nil {
		return Parsed{Malformed: &Malformed{Raw: raw, Reason: fmt.Sprintf("decoding model JSON: %v", err)}}
	}

	rec := Record{
		StateSummary: strings.TrimSpace(string(rr.StateSummary)),
		Evidence:     []string(rr.Evidence),
		Keywords:     strings.TrimSpace(string(rr.Keywords)),
		Metadata: Metadata{
			SourceType:       string(rr.Metadata.SourceType),
			SourceURL:        string(rr.Metadata.SourceURL),
			StartupName:      string(rr.Metadata.StartupName),
			InvestorName:     string(rr.Metadata.InvestorName),
			FundingStage:     string(rr.Metadata.FundingStage),
			StartupLocation:  string(rr.Metadata.StartupLocation),
			InvestorLocation: string(rr.Metadata.InvestorLocation),
		},
		Confidence: clamp01(float64(rr.Confidence)),
	}
	if rec.Evidence == nil {
		rec.Evidence = []string{}
	}
	return Parsed{Record: rec}
}

type rawRecord struct {
	StateSummary looseString  `json:"state_summary"`
	Evidence     looseStrings `json:"evidence"`
	Keywords     looseString  `json:"keywords"`
	Metadata     struct {
		SourceType       looseString `json:"source_type"`
		SourceURL        looseString `json:"source_url"`
		StartupName      looseString `json:"startup_name"`
		InvestorName     looseString `json:"investor_name"`
		FundingStage     looseString `json:"funding_stage"`
		StartupLocation  looseString `json:"startup_location"`
		InvestorLocation looseString `json:"investor_location"`
	} `json:"metadata"`
	Confidence looseFloat `json:"confidence"`
}

// looseString accepts a string, a number, a bool, null, or an array of
// those (joined with ", ").
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = looseString(stringify(v))
	return nil
}

// looseStrings accepts an array of scalars or a single scalar.
type looseStrings []string

func (s *looseStrings) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*s = nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if str := strings.TrimSpace(stringify(item)); str != "" {
				out = append(out, str)
			}
		}
		*s = out
	default:
		if str := strings.TrimSpace(stringify(x)); str != "" {
			*s = []string{str}
		}
	}
	return nil
}

// looseFloat accepts a number or a numeric string. Anything else is 0.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = looseFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*f = looseFloat(n)
			return nil
		}
	}
	*f = 0
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func clamp01(f float64) float64 {
	switch {
	case f != f: // NaN
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
