package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/djivites/startup-intelligence-rag-sample/internal/archive"
	"github.com/djivites/startup-intelligence-rag-sample/internal/config"
	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
	"github.com/djivites/startup-intelligence-rag-sample/internal/extract"
	"github.com/djivites/startup-intelligence-rag-sample/internal/facts"
	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/ingest"
	"github.com/djivites/startup-intelligence-rag-sample/internal/query"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/session"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

// app holds the components shared by commands. The engine is only
// connected by commands that call a model.
type app struct {
	cfg        config.Config
	store      *storage.Store
	engine     engine.Engine
	chatModel  string
	embedModel string
	vectors    *retrieval.SQLiteStore
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.MetadataDir())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	eng, err := engine.Detect(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("detecting inference engine: %w", err)
	}
	chat, embed := engine.Models(cfg)
	return &app{
		cfg:        cfg,
		store:      store,
		engine:     eng,
		chatModel:  chat,
		embedModel: embed,
		vectors:    retrieval.NewSQLiteStore(store.DB()),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

// ensureEngine checks the engine and pulls any missing models.
func (a *app) ensureEngine(ctx context.Context) error {
	return engine.EnsureReady(ctx, a.engine, a.chatModel, a.embedModel, os.Stderr)
}

func (a *app) embedder() *retrieval.Embedder {
	return retrieval.NewEmbedder(a.engine, a.embedModel)
}

func (a *app) archive() *archive.Archive {
	return archive.New(a.cfg.Storage.RawDir())
}

func (a *app) factStore() *facts.Store {
	return facts.NewStore(a.cfg.Storage.FactsDir())
}

// pipeline builds the ingest pipeline. Fact extraction is wired only when
// withFacts is set.
func (a *app) pipeline(withFacts bool, obs ingest.Observer) *ingest.Pipeline {
	ua := a.cfg.Ingest.UserAgent
	timeout := a.cfg.Ingest.PageTimeoutDuration()
	d := ingest.Deps{
		Seen:      a.store,
		Reader:    feed.NewReader(&http.Client{Timeout: timeout}, ua),
		Extractor: extract.New(timeout, ua),
		Archive:   a.archive(),
		Observer:  obs,
		Options: ingest.Options{
			ExtractFacts:          withFacts,
			MarkFailedExtractions: a.cfg.Ingest.MarkFailedExtractions,
		},
	}
	if withFacts {
		d.Facts = facts.NewExtractor(a.engine, a.chatModel)
		d.FactStore = a.factStore()
	}
	return ingest.New(d)
}

func (a *app) query(sessions *session.Store) *query.Service {
	return query.New(query.Deps{
		Engine:    a.engine,
		Retriever: retrieval.NewRetriever(a.embedder(), a.vectors),
		Sessions:  sessions,
		ChatModel: a.chatModel,
		TopK:      a.cfg.Retrieval.TopK,
	})
}

func (a *app) sessions() *session.Store {
	s := a.cfg.Sessions
	return session.New(s.MaxSessions, s.TTLDuration(), s.MaxTurns)
}

// feedSources converts configured feeds to sources, keeping only kind
// unless kind is "all" or empty.
func feedSources(entries []config.FeedEntry, kind string) ([]feed.Source, error) {
	var want feed.Kind
	if kind != "" && kind != "all" {
		k, err := feed.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		want = k
	}
	var out []feed.Source
	for _, e := range entries {
		k, err := feed.ParseKind(e.Source)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", e.URL, err)
		}
		if want != "" && k != want {
			continue
		}
		out = append(out, feed.Source{URL: e.URL, Kind: k})
	}
	return out, nil
}

// kindsFor expands a --kind/--source value into feed kinds.
func kindsFor(kind string) ([]feed.Kind, error) {
	if kind == "" || kind == "all" {
		return []feed.Kind{feed.KindNews, feed.KindBlog}, nil
	}
	k, err := feed.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return []feed.Kind{k}, nil
}
