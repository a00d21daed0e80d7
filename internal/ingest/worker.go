package ingest

import (
	"context"
	"time"

	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
)

// Loop runs the pipeline every interval until ctx is cancelled. Runs never
// overlap: the next one starts interval after the previous one finished.
// If interval is <= 0, it defaults to 1h.
func (p *Pipeline) Loop(ctx context.Context, sources []feed.Source, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	for {
		if ctx.Err() != nil {
			return
		}

		stats, err := p.Run(ctx, sources)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("ingest run failed", "error", err)
		} else {
			p.logger.Info("ingest run finished",
				"run", stats.RunID, "archived", stats.Archived, "skipped", stats.Skipped,
				"too_short", stats.TooShort, "failed", stats.Failed)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
