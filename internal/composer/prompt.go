// Package composer builds the chat prompts used to answer questions from
// retrieved fact documents.
package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/session"
)

// MaxSources is how many distinct source URLs an answer cites.
const MaxSources = 3

const answerInstructions = `You are a startup funding analyst.
Answer the user's question using ONLY the context documents below. If the
context does not contain the answer, say so plainly instead of guessing.

Reply in this format:

Answer:
<direct answer>

Reasoning:
<how the context supports the answer>

Evidence:
<short quotes from the context>

Source url:
<the first 3 unique source_url values of the documents you used, one per line>

Confidence: High | Medium | Low`

const contextualizeInstructions = `Rephrase the user question clearly if needed.
Use the conversation so far to resolve pronouns and references so the question
can be understood on its own. Return ONLY the rewritten question, nothing else.`

// FormatDocuments renders every chunk with its metadata and content.
// Metadata keys are sorted so the prompt is deterministic.
func FormatDocuments(chunks []retrieval.Chunk) string {
	var sb strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("--- DOCUMENT ---\nMETADATA:\n")
		keys := make([]string, 0, len(ch.Metadata))
		for k := range ch.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s: %s\n", k, ch.Metadata[k])
		}
		sb.WriteString("\nCONTENT:\n")
		sb.WriteString(ch.Text)
	}
	return sb.String()
}

// AnswerMessages builds the answer prompt: instructions and context in the
// system message, prior turns, then the question.
func AnswerMessages(question string, chunks []retrieval.Chunk, history []session.Turn) []engine.Message {
	system := answerInstructions + "\n\nContext:\n"
	if len(chunks) == 0 {
		system += "(no documents matched)"
	} else {
		system += FormatDocuments(chunks)
	}

	msgs := make([]engine.Message, 0, 2+2*len(history))
	msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: system})
	msgs = append(msgs, historyMessages(history)...)
	msgs = append(msgs, engine.Message{Role: engine.RoleUser, Content: question})
	return msgs
}

// ContextualizeMessages asks the model to rewrite question as a standalone
// question given history.
func ContextualizeMessages(question string, history []session.Turn) []engine.Message {
	msgs := make([]engine.Message, 0, 2+2*len(history))
	msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: contextualizeInstructions})
	msgs = append(msgs, historyMessages(history)...)
	msgs = append(msgs, engine.Message{Role: engine.RoleUser, Content: question})
	return msgs
}

func historyMessages(history []session.Turn) []engine.Message {
	var msgs []engine.Message
	for _, t := range history {
		msgs = append(msgs,
			engine.Message{Role: engine.RoleUser, Content: t.Question},
			engine.Message{Role: engine.RoleAssistant, Content: t.Answer},
		)
	}
	return msgs
}

// Sources returns up to MaxSources distinct non-empty source URLs in
// retrieval order.
func Sources(chunks []retrieval.Chunk) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ch := range chunks {
		u := ch.SourceURL
		if u == "" {
			u = ch.Metadata["source_url"]
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == MaxSources {
			break
		}
	}
	return out
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(msgs []engine.Message) int {
	n := 0
	for _, m := range msgs {
		n += (len(m.Content) + 3) / 4
	}
	return n
}
