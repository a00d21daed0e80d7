package index

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/djivites/startup-intelligence-rag-sample/internal/facts"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

type fakeEmbedder struct {
	batchCalls int
	batchErr   error
}

func (m *fakeEmbedder) Embed(_ context.Context, _ string, text string) ([]float32, error) {
	return vectorFor(text), nil
}
func (m *fakeEmbedder) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

// vectorFor gives texts mentioning different startups distinct directions.
func vectorFor(text string) []float32 {
	v := make([]float32, 4)
	switch {
	case strings.Contains(text, "Acme"):
		v[0] = 1
	case strings.Contains(text, "Globex"):
		v[1] = 1
	case strings.Contains(text, "Initech"):
		v[2] = 1
	default:
		v[3] = 1
	}
	return v
}

func newTestIndexer(t *testing.T, eng *fakeEmbedder) (*Indexer, *retrieval.SQLiteStore) {
	t.Helper()
	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	vs := retrieval.NewSQLiteStore(st.DB())
	return New(retrieval.NewEmbedder(eng, "llama3"), vs), vs
}

func writeRecords(t *testing.T, dir string, recs map[string]facts.Record) {
	t.Helper()
	s := facts.NewStore(dir)
	for name, r := range recs {
		if _, err := s.Write(name, r); err != nil {
			t.Fatal(err)
		}
	}
}

func record(startup, url string) facts.Record {
	return facts.Record{
		StateSummary: startup + " raised a seed round.",
		Evidence:     []string{startup + " raised $1M", "led by Foo"},
		Keywords:     "seed, " + startup,
		Metadata: facts.Metadata{
			SourceType:   "news",
			SourceURL:    url,
			StartupName:  startup,
			InvestorName: "Foo Ventures",
			FundingStage: "Seed",
		},
		Confidence:  0.8,
		ProcessedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Model:       "llama3",
	}
}

func TestDocumentText(t *testing.T) {
	got := DocumentText(record("Acme", "https://example.com/a"))
	want := "Startup Name: Acme\nInvestor: Foo Ventures\nFunding Stage: Seed\n\n" +
		"Summary:\nAcme raised a seed round.\n\n" +
		"Evidence:\nAcme raised $1M led by Foo\n\n" +
		"Keywords:\nseed, Acme"
	if got != want {
		t.Errorf("DocumentText =\n%q\nwant\n%q", got, want)
	}
}

func TestDocumentID(t *testing.T) {
	a := DocumentID(record("Acme", "https://example.com/a"), "x.json")
	b := DocumentID(record("Other", "https://example.com/a"), "y.json")
	if a != b {
		t.Error("same URL should give the same ID")
	}
	c := DocumentID(record("Acme", ""), "x.json")
	d := DocumentID(record("Acme", ""), "y.json")
	if c == d || c == a {
		t.Error("records without URL should be keyed by file name")
	}
}

func TestBuild_NRecordsNDocuments(t *testing.T) {
	eng := &fakeEmbedder{}
	ix, vs := newTestIndexer(t, eng)
	dir := t.TempDir()
	writeRecords(t, dir, map[string]facts.Record{
		"a.txt": record("Acme", "https://example.com/a"),
		"b.txt": record("Globex", "https://example.com/b"),
		"c.txt": record("Initech", ""),
	})

	res, err := ix.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Indexed != 3 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}
	if eng.batchCalls != 1 {
		t.Errorf("batch calls = %d, want 1", eng.batchCalls)
	}
	n, _ := vs.Count(context.Background())
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	results, err := vs.Search(context.Background(), vectorFor("Globex"), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Metadata["startup_name"] != "Globex" {
		t.Errorf("search = %+v", results)
	}
	if !strings.Contains(results[0].Text, "Startup Name: Globex") {
		t.Errorf("text = %q", results[0].Text)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	ix, vs := newTestIndexer(t, &fakeEmbedder{})
	dir := t.TempDir()
	writeRecords(t, dir, map[string]facts.Record{
		"a.txt": record("Acme", "https://example.com/a"),
		"b.txt": record("Globex", "https://example.com/b"),
	})

	for i := 0; i < 2; i++ {
		if _, err := ix.Build(context.Background(), dir); err != nil {
			t.Fatalf("Build %d: %v", i, err)
		}
	}
	n, _ := vs.Count(context.Background())
	if n != 2 {
		t.Errorf("count after rebuild = %d, want 2", n)
	}
}

func TestBuild_SkipsDegradedAndDuplicateURLsKept(t *testing.T) {
	ix, vs := newTestIndexer(t, &fakeEmbedder{})
	dir := t.TempDir()
	degraded := facts.Record{Evidence: []string{}, Error: "no JSON object detected in model output", Model: "llama3"}
	writeRecords(t, dir, map[string]facts.Record{
		"a.txt":   record("Acme", "https://example.com/a"),
		"a2.txt":  record("Acme", "https://example.com/a"),
		"bad.txt": degraded,
	})

	res, err := ix.Build(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed != 2 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 2 indexed 1 skipped", res)
	}
	n, _ := vs.Count(context.Background())
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestBuild_Prune(t *testing.T) {
	ix, vs := newTestIndexer(t, &fakeEmbedder{})
	ctx := context.Background()
	stale := retrieval.Document{ID: "stale", Text: "old", Embedding: []float32{0, 0, 0, 1}}
	if err := vs.Upsert(ctx, []retrieval.Document{stale}); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	writeRecords(t, dir, map[string]facts.Record{"a.txt": record("Acme", "https://example.com/a")})

	res, err := ix.WithPrune(true).Build(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", res.Pruned)
	}
	ids, _ := vs.IDs(ctx)
	if len(ids) != 1 || ids[0] == "stale" {
		t.Errorf("ids = %v", ids)
	}
}

func TestBuild_EmbedErrorPropagates(t *testing.T) {
	ix, _ := newTestIndexer(t, &fakeEmbedder{batchErr: fmt.Errorf("engine down")})
	dir := t.TempDir()
	writeRecords(t, dir, map[string]facts.Record{"a.txt": record("Acme", "https://example.com/a")})

	if _, err := ix.Build(context.Background(), dir); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuild_MissingDir(t *testing.T) {
	ix, _ := newTestIndexer(t, &fakeEmbedder{})
	if _, err := ix.Build(context.Background(), t.TempDir()+"/nope"); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestBuild_EmptyDir(t *testing.T) {
	eng := &fakeEmbedder{}
	ix, _ := newTestIndexer(t, eng)
	res, err := ix.Build(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed != 0 || eng.batchCalls != 0 {
		t.Errorf("result = %+v, batch calls = %d", res, eng.batchCalls)
	}
}
