// Package index turns fact records into embedded documents in the vector
// store.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/djivites/startup-intelligence-rag-sample/internal/facts"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
)

// DocumentText renders the searchable text for a record.
func DocumentText(rec facts.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Startup Name: %s\n", rec.Metadata.StartupName)
	fmt.Fprintf(&b, "Investor: %s\n", rec.Metadata.InvestorName)
	fmt.Fprintf(&b, "Funding Stage: %s\n", rec.Metadata.FundingStage)
	b.WriteString("\nSummary:\n")
	b.WriteString(rec.StateSummary)
	b.WriteString("\n\nEvidence:\n")
	b.WriteString(strings.Join(rec.Evidence, " "))
	b.WriteString("\n\nKeywords:\n")
	b.WriteString(rec.Keywords)
	return b.String()
}

// DocumentID derives a stable ID from the record's source URL, or from the
// record file name when the URL is unknown, so rebuilding replaces
// documents instead of duplicating them.
func DocumentID(rec facts.Record, fileName string) string {
	if u := strings.TrimSpace(rec.Metadata.SourceURL); u != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(u)).String()
	}
	return fileID(fileName)
}

func fileID(fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file:"+fileName)).String()
}

// Result counts what one Build did.
type Result struct {
	Indexed int
	Skipped int
	Pruned  int
}

// Indexer embeds fact records and writes them to a VectorStore.
type Indexer struct {
	embedder *retrieval.Embedder
	store    retrieval.VectorStore
	prune    bool
	logger   *slog.Logger
}

// New returns an Indexer.
func New(embedder *retrieval.Embedder, store retrieval.VectorStore) *Indexer {
	return &Indexer{embedder: embedder, store: store, logger: slog.Default()}
}

// WithPrune makes Build delete stored documents whose record is no longer
// present in the directory.
func (ix *Indexer) WithPrune(prune bool) *Indexer {
	ix.prune = prune
	return ix
}

// Build indexes every well-formed record in dir. Records carrying an error
// and unreadable files are skipped. All texts are embedded in one batch and
// written in one transaction, so N well-formed records yield exactly N
// documents.
func (ix *Indexer) Build(ctx context.Context, dir string) (Result, error) {
	entries, err := facts.LoadDir(dir)
	if err != nil {
		return Result{}, err
	}

	var res Result
	var docs []retrieval.Document
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.Err != nil {
			res.Skipped++
			continue
		}
		if e.Record.Degraded() {
			ix.logger.Debug("skipping degraded record", "file", e.Name, "error", e.Record.Error)
			res.Skipped++
			continue
		}

		id := DocumentID(e.Record, e.Name)
		if seen[id] {
			// Two records for the same URL: keep both, keyed by file.
			id = fileID(e.Name)
		}
		seen[id] = true

		createdAt := e.Record.ProcessedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		docs = append(docs, retrieval.Document{
			ID:         id,
			SourceURL:  e.Record.Metadata.SourceURL,
			SourceType: e.Record.Metadata.SourceType,
			Text:       DocumentText(e.Record),
			Metadata:   e.Record.Metadata.Map(),
			CreatedAt:  createdAt,
		})
	}

	if len(docs) > 0 {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("embedding documents: %w", err)
		}
		for i := range docs {
			docs[i].Embedding = vecs[i]
		}
		if err := ix.store.Upsert(ctx, docs); err != nil {
			return res, fmt.Errorf("writing documents: %w", err)
		}
		res.Indexed = len(docs)
	}

	if ix.prune {
		n, err := ix.pruneStale(ctx, seen)
		if err != nil {
			return res, err
		}
		res.Pruned = n
	}

	ix.logger.Info("index built", "dir", dir, "indexed", res.Indexed, "skipped", res.Skipped, "pruned", res.Pruned)
	return res, nil
}

func (ix *Indexer) pruneStale(ctx context.Context, keep map[string]bool) (int, error) {
	ids, err := ix.store.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing indexed documents: %w", err)
	}
	n := 0
	for _, id := range ids {
		if keep[id] {
			continue
		}
		if err := ix.store.Delete(ctx, id); err != nil {
			return n, fmt.Errorf("pruning %s: %w", id, err)
		}
		n++
	}
	return n, nil
}
