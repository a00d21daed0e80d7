package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed kinds. News and blog content are filtered by different policies.
const (
	FeedNews = "news"
	FeedBlog = "blog"
)

// FeedEntry is one configured feed.
type FeedEntry struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

type feedsFile struct {
	Feeds []FeedEntry `yaml:"feeds"`
}

// DefaultFeeds is used when no feeds file is configured.
func DefaultFeeds() []FeedEntry {
	return []FeedEntry{
		{URL: "https://techcrunch.com/tag/startups/feed/", Source: FeedNews},
		{URL: "https://yourstory.com/feed", Source: FeedNews},
		{URL: "https://visible.vc/blog/top-vcs-in-india-startup-funding-guide/", Source: FeedBlog},
	}
}

// LoadFeeds reads the feed list from c.File, or returns DefaultFeeds when
// no file is set. The file looks like:
//
//	feeds:
//	  - url: https://techcrunch.com/tag/startups/feed/
//	    source: news
func (c FeedsConfig) LoadFeeds() ([]FeedEntry, error) {
	if c.File == "" {
		return DefaultFeeds(), nil
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return nil, fmt.Errorf("reading feeds file: %w", err)
	}
	return parseFeeds(data)
}

func parseFeeds(data []byte) ([]FeedEntry, error) {
	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing feeds file: %w", err)
	}
	for i, e := range f.Feeds {
		if e.URL == "" {
			return nil, fmt.Errorf("feed %d: missing url", i)
		}
		switch e.Source {
		case FeedNews, FeedBlog:
		case "":
			f.Feeds[i].Source = FeedNews
		default:
			return nil, fmt.Errorf("feed %d (%s): invalid source %q: want %q or %q", i, e.URL, e.Source, FeedNews, FeedBlog)
		}
	}
	return f.Feeds, nil
}
