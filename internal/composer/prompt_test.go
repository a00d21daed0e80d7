package composer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/session"
)

func chunk(id, url, text string) retrieval.Chunk {
	return retrieval.Chunk{
		ID:        id,
		SourceURL: url,
		Text:      text,
		Metadata: map[string]string{
			"startup_name": "Startup " + id,
			"source_url":   url,
		},
	}
}

func TestFormatDocuments(t *testing.T) {
	got := FormatDocuments([]retrieval.Chunk{
		chunk("a", "https://example.com/a", "Acme raised."),
		chunk("b", "https://example.com/b", "Globex raised."),
	})
	want := "--- DOCUMENT ---\nMETADATA:\nsource_url: https://example.com/a\nstartup_name: Startup a\n\nCONTENT:\nAcme raised." +
		"\n\n--- DOCUMENT ---\nMETADATA:\nsource_url: https://example.com/b\nstartup_name: Startup b\n\nCONTENT:\nGlobex raised."
	if got != want {
		t.Errorf("FormatDocuments =\n%q\nwant\n%q", got, want)
	}
}

func TestAnswerMessages_ContainsEveryDocument(t *testing.T) {
	chunks := []retrieval.Chunk{
		chunk("a", "https://example.com/a", "Acme raised $5M."),
		chunk("b", "https://example.com/b", "Globex raised $2M."),
		chunk("c", "", "Initech raised $1M."),
	}
	msgs := AnswerMessages("Who raised?", chunks, nil)

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	sys := msgs[0].Content
	for _, ch := range chunks {
		if !strings.Contains(sys, ch.Text) {
			t.Errorf("system prompt missing content %q", ch.Text)
		}
		if !strings.Contains(sys, "startup_name: "+ch.Metadata["startup_name"]) {
			t.Errorf("system prompt missing metadata for %s", ch.ID)
		}
	}
	for _, want := range []string{"ONLY", "Reasoning:", "Evidence:", "Source url:", "High | Medium | Low"} {
		if !strings.Contains(sys, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
	if msgs[1] != (engine.Message{Role: "user", Content: "Who raised?"}) {
		t.Errorf("last message = %+v", msgs[1])
	}
}

func TestAnswerMessages_NoDocuments(t *testing.T) {
	msgs := AnswerMessages("q", nil, nil)
	if !strings.Contains(msgs[0].Content, "(no documents matched)") {
		t.Error("expected empty-context marker")
	}
}

func TestAnswerMessages_History(t *testing.T) {
	history := []session.Turn{{Question: "Who raised?", Answer: "Acme."}}
	msgs := AnswerMessages("How much?", nil, history)

	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
	}
	want := []string{"system", "user", "assistant", "user"}
	if !reflect.DeepEqual(roles, want) {
		t.Errorf("roles = %v, want %v", roles, want)
	}
	if msgs[2].Content != "Acme." {
		t.Errorf("assistant turn = %q", msgs[2].Content)
	}
}

func TestContextualizeMessages(t *testing.T) {
	history := []session.Turn{{Question: "Who funded Acme?", Answer: "Foo Ventures."}}
	msgs := ContextualizeMessages("Where are they based?", history)

	if msgs[0].Role != "system" || !strings.HasPrefix(msgs[0].Content, "Rephrase the user question clearly if needed.") {
		t.Errorf("system = %q", msgs[0].Content)
	}
	if last := msgs[len(msgs)-1]; last.Role != "user" || last.Content != "Where are they based?" {
		t.Errorf("last = %+v", last)
	}
	if len(msgs) != 4 {
		t.Errorf("got %d messages, want 4", len(msgs))
	}
}

func TestSources(t *testing.T) {
	chunks := []retrieval.Chunk{
		chunk("a", "https://example.com/a", ""),
		chunk("a2", "https://example.com/a", ""),
		chunk("none", "", ""),
		chunk("b", "https://example.com/b", ""),
		chunk("c", "https://example.com/c", ""),
		chunk("d", "https://example.com/d", ""),
	}
	got := Sources(chunks)
	want := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sources = %v, want %v", got, want)
	}
	if Sources(nil) != nil {
		t.Error("no chunks should give no sources")
	}
}

func TestEstimateTokens(t *testing.T) {
	msgs := []engine.Message{{Content: "abcd"}, {Content: "abcde"}}
	if got := EstimateTokens(msgs); got != 3 {
		t.Errorf("EstimateTokens = %d, want 3", got)
	}
}
