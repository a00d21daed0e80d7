// Package ingest runs the crawl: feeds are read, unseen articles are
// extracted and archived, optionally reduced to fact records, and their URLs
// recorded as processed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/djivites/startup-intelligence-rag-sample/internal/archive"
	"github.com/djivites/startup-intelligence-rag-sample/internal/extract"
	"github.com/djivites/startup-intelligence-rag-sample/internal/facts"
	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

// SeenStore abstracts the processed-URL table and the run log.
type SeenStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	SaveURL(ctx context.Context, url, source, title string) error
	SaveRun(ctx context.Context, r storage.Run) (int64, error)
}

// FeedReader reads one feed. Failures yield no entries.
type FeedReader interface {
	Read(ctx context.Context, url string) []feed.Entry
}

// ContentExtractor fetches a page and applies a filtering policy.
type ContentExtractor interface {
	Extract(ctx context.Context, url string, p extract.Policy) (string, error)
}

// FactExtractor turns article text into a fact record. It never fails.
type FactExtractor interface {
	Extract(ctx context.Context, in facts.Input) facts.Record
}

// Options toggles the optional stages.
type Options struct {
	// ExtractFacts runs fact extraction inline for every archived article.
	ExtractFacts bool
	// MarkFailedExtractions records a URL as processed even when its inline
	// fact extraction produced a degraded record.
	MarkFailedExtractions bool
}

// Deps wires a Pipeline. Facts and FactStore are only needed when facts
// are extracted.
type Deps struct {
	Seen      SeenStore
	Reader    FeedReader
	Extractor ContentExtractor
	Archive   *archive.Archive
	Facts     FactExtractor
	FactStore *facts.Store
	Observer  Observer
	Options   Options
}

// Stats counts what a run did.
type Stats struct {
	RunID      int64
	StartedAt  time.Time
	FinishedAt time.Time
	Feeds      int
	Entries    int
	Archived   int
	Skipped    int
	TooShort   int
	Failed     int
	Facts      int
	Degraded   int
	Marked     int
}

// Pipeline processes feed entries one at a time, in feed order. Concurrent
// calls to Run are serialized; TryRun refuses instead of waiting.
type Pipeline struct {
	mu        sync.Mutex
	seen      SeenStore
	reader    FeedReader
	extractor ContentExtractor
	archive   *archive.Archive
	facts     FactExtractor
	factStore *facts.Store
	observer  Observer
	opts      Options
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Pipeline with the given dependencies.
func New(d Deps) *Pipeline {
	obs := d.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Pipeline{
		seen:      d.Seen,
		reader:    d.Reader,
		extractor: d.Extractor,
		archive:   d.Archive,
		facts:     d.Facts,
		factStore: d.FactStore,
		observer:  obs,
		opts:      d.Options,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// SourceTag maps a feed kind to the value stored in processed_urls.source.
func SourceTag(kind feed.Kind) string {
	if kind == feed.KindBlog {
		return storage.SourceBlog
	}
	return storage.SourceFundingNews
}

// PolicyFor returns the filtering policy for kind.
func PolicyFor(kind feed.Kind) extract.Policy {
	if kind == feed.KindBlog {
		return extract.DefaultBlogPolicy()
	}
	return extract.DefaultNewsPolicy()
}

// ErrBusy is returned by TryRun while another run holds the pipeline.
var ErrBusy = errors.New("an ingest run is already in progress")

// Run reads every source and processes its entries. Per-item failures,
// storage errors included, are counted and skipped; only cancellation stops
// the run early. The run summary is written to the run log before returning.
func (p *Pipeline) Run(ctx context.Context, sources []feed.Source) (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runLocked(ctx, sources)
}

// TryRun is Run without waiting: it returns ErrBusy if a run is in progress.
func (p *Pipeline) TryRun(ctx context.Context, sources []feed.Source) (Stats, error) {
	if !p.mu.TryLock() {
		return Stats{}, ErrBusy
	}
	defer p.mu.Unlock()
	return p.runLocked(ctx, sources)
}

func (p *Pipeline) runLocked(ctx context.Context, sources []feed.Source) (Stats, error) {
	stats := Stats{StartedAt: p.now().UTC()}
	err := p.run(ctx, sources, &stats)
	stats.FinishedAt = p.now().UTC()

	id, saveErr := p.seen.SaveRun(context.WithoutCancel(ctx), storage.Run{
		StartedAt:  stats.StartedAt,
		FinishedAt: stats.FinishedAt,
		Feeds:      stats.Feeds,
		Entries:    stats.Entries,
		Archived:   stats.Archived,
		Skipped:    stats.Skipped,
		TooShort:   stats.TooShort,
		Failed:     stats.Failed,
		Facts:      stats.Facts,
		Degraded:   stats.Degraded,
		Marked:     stats.Marked,
	})
	if saveErr != nil {
		p.logger.Warn("could not record ingest run", "error", saveErr)
	}
	stats.RunID = id
	return stats, err
}

func (p *Pipeline) run(ctx context.Context, sources []feed.Source, stats *Stats) error {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries := p.reader.Read(ctx, src.URL)
		stats.Feeds++
		p.observer.Observe(Event{Type: EventFeed, Source: src, Count: len(entries)})

		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Entries++
			p.processEntry(ctx, feed.SourcedEntry{Entry: e, Source: src}, stats)
		}
	}
	return nil
}

func (p *Pipeline) processEntry(ctx context.Context, se feed.SourcedEntry, stats *Stats) {
	link := se.Link
	seen, err := p.seen.Exists(ctx, link)
	if err != nil {
		p.storageFailed(se, fmt.Errorf("checking %s: %w", link, err), stats)
		return
	}
	if seen {
		stats.Skipped++
		p.observer.Observe(Event{Type: EventSkipped, Entry: se})
		return
	}

	text, err := p.extractor.Extract(ctx, link, PolicyFor(se.Source.Kind))
	if err != nil {
		if errors.Is(err, extract.ErrTooShort) {
			stats.TooShort++
			p.observer.Observe(Event{Type: EventTooShort, Entry: se, Err: err})
		} else {
			stats.Failed++
			p.observer.Observe(Event{Type: EventFailed, Entry: se, Err: err})
		}
		return
	}

	var path string
	if se.Source.Kind == feed.KindBlog {
		path, err = p.archive.WriteBlog(se.Title, text)
	} else {
		path, err = p.archive.WriteNews(link, text)
	}
	if err != nil {
		stats.Failed++
		p.observer.Observe(Event{Type: EventFailed, Entry: se, Err: err})
		return
	}
	stats.Archived++
	p.observer.Observe(Event{Type: EventArchived, Entry: se, Path: path})

	mark := true
	if p.opts.ExtractFacts && p.facts != nil {
		rec := p.facts.Extract(ctx, facts.Input{Text: text, SourceURL: link, SourceType: string(se.Source.Kind)})
		ok := p.writeRecord(se, filepath.Base(path), rec, stats)
		if !ok {
			mark = p.opts.MarkFailedExtractions
		}
	}

	if !mark {
		p.logger.Debug("leaving url unmarked after failed fact extraction", "url", link)
		return
	}
	if err := p.seen.SaveURL(ctx, link, SourceTag(se.Source.Kind), se.Title); err != nil {
		if errors.Is(err, storage.ErrDuplicateURL) {
			p.logger.Debug("url already marked", "url", link)
			return
		}
		p.storageFailed(se, fmt.Errorf("marking %s: %w", link, err), stats)
		return
	}
	stats.Marked++
}

// storageFailed counts an entry the processed-URL table could not serve.
// Its URL stays unmarked so the next run retries it.
func (p *Pipeline) storageFailed(se feed.SourcedEntry, err error, stats *Stats) {
	p.logger.Warn("skipping entry after storage error", "url", se.Link, "error", err)
	stats.Failed++
	p.observer.Observe(Event{Type: EventFailed, Entry: se, Err: err})
}

// writeRecord stores rec next to the archive name and reports whether it is
// a usable, persisted record.
func (p *Pipeline) writeRecord(se feed.SourcedEntry, name string, rec facts.Record, stats *Stats) bool {
	if p.factStore == nil {
		return !rec.Degraded()
	}
	path, err := p.factStore.Write(name, rec)
	if err != nil {
		p.logger.Warn("could not write fact record", "name", name, "error", err)
		p.observer.Observe(Event{Type: EventDegraded, Entry: se, Err: err})
		stats.Degraded++
		return false
	}
	if rec.Degraded() {
		stats.Degraded++
		p.observer.Observe(Event{Type: EventDegraded, Entry: se, Path: path, Err: errors.New(rec.Error)})
		return false
	}
	stats.Facts++
	p.observer.Observe(Event{Type: EventFacts, Entry: se, Path: path})
	return true
}

// FactStats counts what ExtractArchived did.
type FactStats struct {
	Articles  int
	Extracted int
	Degraded  int
	Existing  int
	Failed    int
}

// ExtractArchived runs fact extraction over archived articles of kind that
// have no record yet.
func (p *Pipeline) ExtractArchived(ctx context.Context, kind feed.Kind) (FactStats, error) {
	var stats FactStats
	if p.facts == nil || p.factStore == nil {
		return stats, errors.New("fact extraction is not configured")
	}
	paths, err := p.archive.List(kind)
	if err != nil {
		return stats, err
	}
	src := feed.Source{Kind: kind}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Articles++
		name := filepath.Base(path)
		se := feed.SourcedEntry{Entry: feed.Entry{Title: name}, Source: src}

		if p.factStore.Exists(name) {
			stats.Existing++
			p.observer.Observe(Event{Type: EventSkipped, Entry: se, Path: path})
			continue
		}
		art, err := archive.ReadArticle(path)
		if err != nil {
			stats.Failed++
			p.observer.Observe(Event{Type: EventFailed, Entry: se, Path: path, Err: err})
			continue
		}
		se.Link = art.SourceURL

		rec := p.facts.Extract(ctx, facts.Input{Text: art.Text, SourceURL: art.SourceURL, SourceType: string(kind)})
		out, err := p.factStore.Write(name, rec)
		if err != nil {
			p.logger.Warn("could not write fact record", "name", name, "error", err)
			stats.Failed++
			p.observer.Observe(Event{Type: EventFailed, Entry: se, Path: path, Err: err})
			continue
		}
		if rec.Degraded() {
			stats.Degraded++
			p.observer.Observe(Event{Type: EventDegraded, Entry: se, Path: out, Err: errors.New(rec.Error)})
			continue
		}
		stats.Extracted++
		p.observer.Observe(Event{Type: EventFacts, Entry: se, Path: out})
	}
	return stats, nil
}
