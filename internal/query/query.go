// Package query answers questions over the fact index.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/djivites/startup-intelligence-rag-sample/internal/composer"
	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/session"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

const (
	DefaultTopK = 8
	MaxTopK     = 50
)

// Chatter is the slice of engine.Engine the service needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, opts engine.ChatOptions) (string, error)
}

// Searcher finds documents similar to a query.
type Searcher interface {
	Retrieve(ctx context.Context, query string, topK int, filter retrieval.Filter) ([]retrieval.Chunk, error)
}

// Deps wires a Service. Sessions may be nil, in which case every question
// is answered without history.
type Deps struct {
	Engine    Chatter
	Retriever Searcher
	Sessions  *session.Store
	ChatModel string
	TopK      int
	Logger    *slog.Logger
}

// Request is one question. TopK 0 uses the service default. SourceType
// optionally restricts retrieval to "news" or "blog" documents.
type Request struct {
	Question   string
	SessionID  string
	TopK       int
	SourceType string
}

// Answer is the model's reply with the documents it was grounded on.
type Answer struct {
	Text               string
	Question           string
	StandaloneQuestion string
	Documents          []retrieval.Chunk
	Sources            []string
}

// Service runs retrieval-augmented question answering.
type Service struct {
	engine    Chatter
	retriever Searcher
	sessions  *session.Store
	model     string
	topK      int
	logger    *slog.Logger
}

// New creates a Service from d.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := d.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		engine:    d.Engine,
		retriever: d.Retriever,
		sessions:  d.Sessions,
		model:     d.ChatModel,
		topK:      clampK(topK),
		logger:    logger,
	}
}

// Ask answers req.Question. With session history the question is first
// rewritten into a standalone form; if that call fails the original
// question is used. The exchange is appended to the session.
func (s *Service) Ask(ctx context.Context, req Request) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	var history []session.Turn
	if s.sessions != nil {
		history = s.sessions.History(req.SessionID)
	}

	standalone := question
	if len(history) > 0 {
		standalone = s.contextualize(ctx, question, history)
	}

	docs, err := s.retriever.Retrieve(ctx, standalone, s.k(req.TopK), filterFor(req.SourceType))
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving documents: %w", err)
	}

	msgs := composer.AnswerMessages(standalone, docs, history)
	s.logger.Debug("answering", "docs", len(docs), "prompt_tokens", composer.EstimateTokens(msgs))

	text, err := s.engine.Chat(ctx, s.model, msgs, engine.ChatOptions{})
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	text = strings.TrimSpace(text)

	if s.sessions != nil {
		s.sessions.Append(req.SessionID, session.Turn{Question: question, Answer: text})
	}

	return Answer{
		Text:               text,
		Question:           question,
		StandaloneQuestion: standalone,
		Documents:          docs,
		Sources:            composer.Sources(docs),
	}, nil
}

// Recall returns the k documents most similar to question without asking
// the model.
func (s *Service) Recall(ctx context.Context, question string, k int) ([]retrieval.Chunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	docs, err := s.retriever.Retrieve(ctx, question, s.k(k), nil)
	if err != nil {
		return nil, fmt.Errorf("retrieving documents: %w", err)
	}
	return docs, nil
}

func (s *Service) contextualize(ctx context.Context, question string, history []session.Turn) string {
	out, err := s.engine.Chat(ctx, s.model, composer.ContextualizeMessages(question, history), engine.ChatOptions{})
	if err != nil {
		s.logger.Warn("question rewrite failed, using original", "error", err)
		return question
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return question
	}
	return out
}

func (s *Service) k(requested int) int {
	if requested <= 0 {
		return s.topK
	}
	return clampK(requested)
}

func clampK(k int) int {
	switch {
	case k < 1:
		return 1
	case k > MaxTopK:
		return MaxTopK
	}
	return k
}

func filterFor(sourceType string) retrieval.Filter {
	if sourceType == "" {
		return nil
	}
	return retrieval.Filter{"source_type": sourceType}
}
