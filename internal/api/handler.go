package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/ingest"
	"github.com/djivites/startup-intelligence-rag-sample/internal/query"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Asker answers questions over the fact index.
type Asker interface {
	Ask(ctx context.Context, req query.Request) (query.Answer, error)
	Recall(ctx context.Context, question string, k int) ([]retrieval.Chunk, error)
}

// RecordStore exposes the processed-URL table and run log.
type RecordStore interface {
	ListProcessedURLs(ctx context.Context, f storage.ListFilter) ([]storage.ProcessedURL, error)
	CountProcessedURLs(ctx context.Context, source string) (int, error)
	RecentRuns(ctx context.Context, limit int) ([]storage.Run, error)
}

// Ingester runs one crawl over the configured sources. TryRun returns
// ingest.ErrBusy instead of waiting when a crawl is already running, whether
// it was started here or by the background loop.
type Ingester interface {
	TryRun(ctx context.Context, sources []feed.Source) (ingest.Stats, error)
}

// Deps holds dependencies for the HTTP surface. Ingester is optional; when
// nil, POST /v1/ingest is not mounted. An empty Token disables auth.
type Deps struct {
	Query    Asker
	Store    RecordStore
	Ingester Ingester
	Sources  []feed.Source
	Token    string
}

// NewHandler returns the chat and records API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/v1/ask", handleAsk(deps))
		r.Get("/v1/recall", handleRecall(deps))
		r.Get("/v1/processed", handleListProcessed(deps))
		r.Get("/v1/runs", handleListRuns(deps))
		if deps.Ingester != nil {
			r.Post("/v1/ingest", handleIngest(deps))
		}
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type askRequest struct {
	Question   string `json:"question"`
	SessionID  string `json:"session_id"`
	K          int    `json:"k"`
	SourceType string `json:"source_type"`
}

type documentJSON struct {
	ID         string            `json:"id"`
	SourceURL  string            `json:"source_url,omitempty"`
	SourceType string            `json:"source_type,omitempty"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float32           `json:"score"`
}

type askResponse struct {
	Answer             string         `json:"answer"`
	Question           string         `json:"question"`
	StandaloneQuestion string         `json:"standalone_question"`
	Sources            []string       `json:"sources"`
	Documents          []documentJSON `json:"documents"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.SourceType != "" {
			kind, err := feed.ParseKind(req.SourceType)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			req.SourceType = string(kind)
		}

		ans, err := deps.Query.Ask(r.Context(), query.Request{
			Question:   req.Question,
			SessionID:  req.SessionID,
			TopK:       req.K,
			SourceType: req.SourceType,
		})
		if errors.Is(err, query.ErrEmptyQuestion) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "answering failed: %v", err)
			return
		}

		sources := ans.Sources
		if sources == nil {
			sources = []string{}
		}
		writeJSON(w, askResponse{
			Answer:             ans.Text,
			Question:           ans.Question,
			StandaloneQuestion: ans.StandaloneQuestion,
			Sources:            sources,
			Documents:          documentsJSON(ans.Documents),
		})
	}
}

func handleRecall(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
			return
		}
		limit := parseIntParam(r, "limit", 5, query.MaxTopK)

		chunks, err := deps.Query.Recall(r.Context(), q, limit)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "recall failed: %v", err)
			return
		}
		writeJSON(w, documentsJSON(chunks))
	}
}

func handleListProcessed(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)
		source := r.URL.Query().Get("source")

		rows, err := deps.Store.ListProcessedURLs(r.Context(), storage.ListFilter{Source: source, Limit: limit, Offset: offset})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list processed urls: %v", err)
			return
		}
		out := make([]processedJSON, len(rows))
		for i, row := range rows {
			out[i] = processedJSON{
				ID:        row.ID,
				URL:       row.URL,
				Source:    row.Source,
				Title:     row.Title,
				CreatedAt: row.CreatedAt.Format(time.RFC3339),
			}
		}
		writeJSON(w, out)
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 10, 100)

		runs, err := deps.Store.RecentRuns(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}
		out := make([]runJSON, len(runs))
		for i, run := range runs {
			out[i] = runFromStorage(run)
		}
		writeJSON(w, out)
	}
}

func handleIngest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Ingester.TryRun(r.Context(), deps.Sources)
		if errors.Is(err, ingest.ErrBusy) {
			httpError(w, http.StatusConflict, "conflict", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "ingest failed: %v", err)
			return
		}
		writeJSON(w, runFromStats(stats))
	}
}

type processedJSON struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
}

type runJSON struct {
	ID         int64  `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Feeds      int    `json:"feeds"`
	Entries    int    `json:"entries"`
	Archived   int    `json:"archived"`
	Skipped    int    `json:"skipped"`
	TooShort   int    `json:"too_short"`
	Failed     int    `json:"failed"`
	Facts      int    `json:"facts"`
	Degraded   int    `json:"degraded"`
	Marked     int    `json:"marked"`
}

func runFromStorage(r storage.Run) runJSON {
	return runJSON{
		ID:         r.ID,
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Feeds:      r.Feeds,
		Entries:    r.Entries,
		Archived:   r.Archived,
		Skipped:    r.Skipped,
		TooShort:   r.TooShort,
		Failed:     r.Failed,
		Facts:      r.Facts,
		Degraded:   r.Degraded,
		Marked:     r.Marked,
	}
}

func runFromStats(s ingest.Stats) runJSON {
	return runFromStorage(storage.Run{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Feeds:      s.Feeds,
		Entries:    s.Entries,
		Archived:   s.Archived,
		Skipped:    s.Skipped,
		TooShort:   s.TooShort,
		Failed:     s.Failed,
		Facts:      s.Facts,
		Degraded:   s.Degraded,
		Marked:     s.Marked,
	})
}

func documentsJSON(chunks []retrieval.Chunk) []documentJSON {
	out := make([]documentJSON, len(chunks))
	for i, c := range chunks {
		out[i] = documentJSON{
			ID:         c.ID,
			SourceURL:  c.SourceURL,
			SourceType: c.SourceType,
			Text:       c.Text,
			Metadata:   c.Metadata,
			Score:      c.Score,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
