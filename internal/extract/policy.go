package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Policy filters collected paragraphs into the text to archive, or rejects
// the page with ErrTooShort.
type Policy interface {
	Name() string
	Apply(paragraphs []string) (string, error)
}

// NewsPolicy keeps only substantial paragraphs and rejects pages whose
// remaining text is short. Lengths are counted in characters.
type NewsPolicy struct {
	MinParagraphChars int // paragraphs at or below this length are dropped
	MinTotalChars     int
}

// DefaultNewsPolicy drops paragraphs of 50 characters or fewer and requires
// 300 characters overall.
func DefaultNewsPolicy() NewsPolicy {
	return NewsPolicy{MinParagraphChars: 50, MinTotalChars: 300}
}

func (NewsPolicy) Name() string { return "news" }

func (p NewsPolicy) Apply(paragraphs []string) (string, error) {
	kept := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if utf8.RuneCountInString(para) > p.MinParagraphChars {
			kept = append(kept, para)
		}
	}
	text := strings.Join(kept, "\n")
	if n := utf8.RuneCountInString(text); n < p.MinTotalChars {
		return "", fmt.Errorf("%w: %d chars, need %d", ErrTooShort, n, p.MinTotalChars)
	}
	return text, nil
}

// BlogPolicy keeps every paragraph and rejects the whole page when it has
// too few words.
type BlogPolicy struct {
	MinWords int
}

// DefaultBlogPolicy requires 150 words.
func DefaultBlogPolicy() BlogPolicy {
	return BlogPolicy{MinWords: 150}
}

func (BlogPolicy) Name() string { return "blog" }

func (p BlogPolicy) Apply(paragraphs []string) (string, error) {
	text := strings.Join(paragraphs, "\n")
	if n := len(strings.Fields(text)); n < p.MinWords {
		return "", fmt.Errorf("%w: %d words, need %d", ErrTooShort, n, p.MinWords)
	}
	return strings.TrimSpace(text), nil
}
