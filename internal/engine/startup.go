package engine

import (
	"context"
	"fmt"
	"io"
)

// requiredModels lists the distinct non-empty model names in order.
func requiredModels(names ...string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// progressPrinter writes pull progress to w, one line per status change or
// per ten percent step.
func progressPrinter(w io.Writer) func(PullProgress) {
	lastStatus, lastStep := "", -1
	return func(p PullProgress) {
		if p.Total <= 0 {
			if p.Status != lastStatus {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
			lastStatus, lastStep = p.Status, -1
			return
		}
		pct := int(p.Completed * 100 / p.Total)
		if p.Status == lastStatus && pct/10 == lastStep {
			return
		}
		lastStatus, lastStep = p.Status, pct/10
		fmt.Fprintf(w, "  %s %d%%\n", p.Status, pct)
	}
}

// EnsureReady fails when the backend is unreachable and pulls any of the
// chat and embedding models it does not have yet. Progress goes to w.
func EnsureReady(ctx context.Context, m ModelManager, chatModel, embedModel string, w io.Writer) error {
	if !m.IsRunning(ctx) {
		return fmt.Errorf("inference engine is not reachable; start Ollama with `ollama serve` or check openai.base_url")
	}
	for _, model := range requiredModels(chatModel, embedModel) {
		if !m.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: pulling...\n", model)
			if err := m.PullModel(ctx, model, progressPrinter(w)); err != nil {
				return fmt.Errorf("pulling model %s: %w", model, err)
			}
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}
	return nil
}
