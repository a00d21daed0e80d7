package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/djivites/startup-intelligence-rag-sample/internal/config"
	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/ingest"
)

func TestFeedSources(t *testing.T) {
	entries := []config.FeedEntry{
		{URL: "https://news.example/feed", Source: "news"},
		{URL: "https://blog.example/post", Source: "blog"},
		{URL: "https://other.example/feed", Source: ""},
	}

	all, err := feedSources(entries, "all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all: got %d sources, want 3", len(all))
	}
	if all[2].Kind != feed.KindNews {
		t.Errorf("empty source should default to news, got %q", all[2].Kind)
	}

	blogs, err := feedSources(entries, "blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blogs) != 1 || blogs[0].URL != "https://blog.example/post" || blogs[0].Kind != feed.KindBlog {
		t.Errorf("blog: got %+v", blogs)
	}

	news, _ := feedSources(entries, "news")
	if len(news) != 2 {
		t.Errorf("news: got %d sources, want 2", len(news))
	}
}

func TestFeedSources_Invalid(t *testing.T) {
	if _, err := feedSources(nil, "podcast"); err == nil {
		t.Error("expected error for unknown selector")
	}
	bad := []config.FeedEntry{{URL: "https://x.example", Source: "video"}}
	if _, err := feedSources(bad, "all"); err == nil {
		t.Error("expected error for unknown feed source")
	}
}

func TestKindsFor(t *testing.T) {
	kinds, err := kindsFor("all")
	if err != nil || len(kinds) != 2 {
		t.Fatalf("all: got %v, %v", kinds, err)
	}
	kinds, err = kindsFor("blog")
	if err != nil || len(kinds) != 1 || kinds[0] != feed.KindBlog {
		t.Fatalf("blog: got %v, %v", kinds, err)
	}
	if _, err := kindsFor("rss"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil {
			t.Errorf("parseLogLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestEventLabel(t *testing.T) {
	e := ingest.Event{Entry: feed.SourcedEntry{Entry: feed.Entry{Link: "https://a.example/x", Title: "X"}}}
	if got := eventLabel(e); got != "https://a.example/x" {
		t.Errorf("link label = %q", got)
	}
	e = ingest.Event{Entry: feed.SourcedEntry{Entry: feed.Entry{Title: "Top_VCs.txt"}}}
	if got := eventLabel(e); got != "Top_VCs.txt" {
		t.Errorf("title label = %q", got)
	}
	e = ingest.Event{Path: "/tmp/a.json"}
	if got := eventLabel(e); got != "/tmp/a.json" {
		t.Errorf("path label = %q", got)
	}
}

func TestPrintEvent_AllTypes(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	for _, typ := range []ingest.EventType{
		ingest.EventFeed, ingest.EventSkipped, ingest.EventTooShort, ingest.EventFailed,
		ingest.EventArchived, ingest.EventFacts, ingest.EventDegraded,
	} {
		printEvent(ingest.Event{Type: typ, Path: "p", Err: errors.New("boom")})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"ingest", "facts", "index", "ask", "recall", "processed", "serve", "status", "config"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRecallCommand_RequiresQuery(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"recall"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing query")
	}
	if !strings.Contains(err.Error(), "arg") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(ansiRed, "hello"); result != "hello" {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(ansiRed, "hello"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPrintHelpers_WriteToStderr(t *testing.T) {
	oldColor, oldOut := noColor, stderr
	defer func() { noColor, stderr = oldColor, oldOut }()
	noColor = true
	var buf bytes.Buffer
	stderr = &buf

	printSuccess("saved %d", 3)
	printWarning("slow")
	printStatus("Model", "%s", "llama3")

	want := "✓ saved 3\n⚠ slow\n  Model: llama3\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
