package facts

import (
	"context"
	"log/slog"
	"time"

	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
)

// Chatter is the slice of engine.Engine the extractor needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, opts engine.ChatOptions) (string, error)
}

// Input is one article to extract from, with its provenance.
type Input struct {
	Text       string
	SourceURL  string
	SourceType string
}

// Extractor makes one model call per article and never fails: problems are
// recorded on the returned Record instead.
type Extractor struct {
	client Chatter
	model  string
	now    func() time.Time
	logger *slog.Logger
}

// NewExtractor creates an Extractor using client and model.
func NewExtractor(client Chatter, model string) *Extractor {
	return &Extractor{
		client: client,
		model:  model,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// Model returns the model identifier stamped on records.
func (e *Extractor) Model() string {
	return e.model
}

// Extract asks the model for a Record describing in.Text. There is no retry.
// On a failed call or unparseable reply the fallback record carries the
// reason in Error and the reply, if any, in RawOutput. ProcessedAt and Model
// are always set.
func (e *Extractor) Extract(ctx context.Context, in Input) Record {
	var rec Record

	raw, err := e.client.Chat(ctx, e.model, BuildPrompt(in.Text), engine.ChatOptions{JSON: true})
	if err != nil {
		e.logger.Warn("fact extraction chat failed", "url", in.SourceURL, "error", err)
		rec = fallback(err.Error(), "")
	} else if p := Parse(raw); !p.OK() {
		e.logger.Warn("fact extraction returned malformed output", "url", in.SourceURL, "reason", p.Malformed.Reason)
		rec = fallback(p.Malformed.Reason, p.Malformed.Raw)
	} else {
		rec = p.Record
		if rec.Metadata.SourceURL == "" {
			rec.Metadata.SourceURL = in.SourceURL
		}
		if rec.Metadata.SourceType == "" {
			rec.Metadata.SourceType = in.SourceType
		}
	}

	rec.ProcessedAt = e.now().UTC()
	rec.Model = e.model
	return rec
}
