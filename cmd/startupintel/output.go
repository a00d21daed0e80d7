package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/djivites/startup-intelligence-rag-sample/internal/ingest"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

// stderr is where all human-facing progress goes; stdout carries answers
// and listings so they can be piped.
var stderr io.Writer = os.Stderr

type tone struct {
	color  string
	symbol string
}

var (
	toneOK   = tone{ansiGreen, "✓"}
	toneFail = tone{ansiRed, "✗"}
	toneWarn = tone{ansiYellow, "⚠"}
	toneStep = tone{ansiCyan, "→"}
)

// colorDisabledByDefault reports whether --no-color should default to true.
func colorDisabledByDefault() bool {
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	fd := os.Stderr.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + ansiReset
}

func say(t tone, format string, args ...any) {
	fmt.Fprintln(stderr, colorize(t.color, t.symbol+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { say(toneOK, format, args...) }
func printError(format string, args ...any)   { say(toneFail, format, args...) }
func printWarning(format string, args ...any) { say(toneWarn, format, args...) }
func printStep(format string, args ...any)    { say(toneStep, format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(ansiBold, label+":"), fmt.Sprintf(format, args...))
}

// printEvent renders pipeline progress for the ingest and facts commands.
func printEvent(e ingest.Event) {
	switch e.Type {
	case ingest.EventFeed:
		printStep("%s: %d entries", e.Source.URL, e.Count)
	case ingest.EventSkipped:
		printStatus("skip", "%s", eventLabel(e))
	case ingest.EventTooShort:
		printWarning("too short: %s", eventLabel(e))
	case ingest.EventFailed:
		printError("%s: %v", eventLabel(e), e.Err)
	case ingest.EventArchived:
		printSuccess("archived %s", e.Path)
	case ingest.EventFacts:
		printSuccess("facts %s", e.Path)
	case ingest.EventDegraded:
		printWarning("degraded facts %s: %v", e.Path, e.Err)
	}
}

func eventLabel(e ingest.Event) string {
	switch {
	case e.Entry.Link != "":
		return e.Entry.Link
	case e.Entry.Title != "":
		return e.Entry.Title
	default:
		return e.Path
	}
}
