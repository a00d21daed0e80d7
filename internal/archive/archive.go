// Package archive stores accepted article text as plain UTF-8 files, one
// per article, under <data>/raw/news and <data>/raw/blogs.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
)

// SourceMarker precedes the article URL at the end of news archive bodies.
const SourceMarker = "source_url:"

const maxBlogNameRunes = 150

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)

// BlogFilename derives an archive name from a blog post title: every
// character that is not a letter, digit, underscore or hyphen becomes "_",
// and the result is capped at 150 characters.
func BlogFilename(title string) string {
	name := nonWord.ReplaceAllString(title, "_")
	if r := []rune(name); len(r) > maxBlogNameRunes {
		name = string(r[:maxBlogNameRunes])
	}
	if name == "" {
		name = "untitled"
	}
	return name + ".txt"
}

// NewsFilename derives an archive name from an article URL by dropping the
// scheme and replacing "/" with "_": https://example.com/a -> example.com_a.txt.
func NewsFilename(url string) string {
	name := strings.ReplaceAll(url, "https://", "")
	name = strings.ReplaceAll(name, "http://", "")
	name = strings.ReplaceAll(name, "/", "_")
	return name + ".txt"
}

// Article is an archived file read back from disk.
type Article struct {
	Name      string
	Path      string
	Kind      feed.Kind
	Text      string
	SourceURL string
}

// Archive writes and lists raw article files.
type Archive struct {
	root string
}

// New returns an Archive rooted at dir (normally <data>/raw).
func New(dir string) *Archive {
	return &Archive{root: dir}
}

// Dir returns the directory holding articles of the given kind.
func (a *Archive) Dir(kind feed.Kind) string {
	if kind == feed.KindBlog {
		return filepath.Join(a.root, "blogs")
	}
	return filepath.Join(a.root, "news")
}

// WriteNews archives a news article under NewsFilename(url). The body ends
// with " source_url:<url>" so provenance survives without metadata. An
// existing file of the same name is overwritten.
func (a *Archive) WriteNews(url, text string) (string, error) {
	return a.write(feed.KindNews, NewsFilename(url), text+" "+SourceMarker+url)
}

// WriteBlog archives a blog post under BlogFilename(title).
func (a *Archive) WriteBlog(title, text string) (string, error) {
	return a.write(feed.KindBlog, BlogFilename(title), text)
}

func (a *Archive) write(kind feed.Kind, name, body string) (string, error) {
	dir := a.Dir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// List returns the paths of all archived .txt files of kind, sorted by name.
// A missing directory yields an empty list.
func (a *Archive) List(kind feed.Kind) ([]string, error) {
	entries, err := os.ReadDir(a.Dir(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(a.Dir(kind), e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadArticle loads an archived file. For news files the trailing marker is
// split off into SourceURL.
func ReadArticle(path string) (Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Article{}, fmt.Errorf("reading article: %w", err)
	}

	art := Article{
		Name: filepath.Base(path),
		Path: path,
		Kind: feed.KindNews,
		Text: string(data),
	}
	if filepath.Base(filepath.Dir(path)) == "blogs" {
		art.Kind = feed.KindBlog
	}

	if i := strings.LastIndex(art.Text, " "+SourceMarker); i >= 0 {
		url := art.Text[i+len(SourceMarker)+1:]
		if url != "" && !strings.ContainsAny(url, " \n") {
			art.SourceURL = url
			art.Text = art.Text[:i]
		}
	}
	return art, nil
}
