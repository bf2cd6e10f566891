// Package posts loads blog articles written in Markdown with YAML front matter.
package posts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
)

//go:embed content/*.md
var contentFS embed.FS

var (
	ErrNoFrontMatter = errors.New("missing front matter")
	errMissingTitle  = errors.New("front matter: title is required")
	errMissingDate   = errors.New("front matter: date is required")
)

const frontMatterDelim = "---"

type Post struct {
	Slug    string
	Title   string
	Summary string
	Author  string
	Date    time.Time
	Tags    []string
	Draft   bool
	HTML    template.HTML
}

type frontMatter struct {
	Title   string   `yaml:"title"`
	Slug    string   `yaml:"slug"`
	Date    string   `yaml:"date"`
	Summary string   `yaml:"summary"`
	Author  string   `yaml:"author"`
	Tags    []string `yaml:"tags"`
	Draft   bool     `yaml:"draft"`
}

// Store holds the published posts, newest first.
type Store struct {
	posts  []Post
	bySlug map[string]int
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// LoadEmbedded loads the posts compiled into the binary.
func LoadEmbedded() (*Store, error) {
	return Load(contentFS, "content")
}

// Load parses every .md file in dir. Drafts are skipped; duplicate slugs are an error.
func Load(fsys fs.FS, dir string) (*Store, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read posts dir: %w", err)
	}
	s := &Store{bySlug: make(map[string]int)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		p, err := Parse(strings.TrimSuffix(e.Name(), ".md"), data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if p.Draft {
			continue
		}
		s.posts = append(s.posts, p)
	}
	sort.SliceStable(s.posts, func(i, j int) bool {
		if !s.posts[i].Date.Equal(s.posts[j].Date) {
			return s.posts[i].Date.After(s.posts[j].Date)
		}
		return s.posts[i].Slug < s.posts[j].Slug
	})
	for i, p := range s.posts {
		if _, dup := s.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate post slug %q", p.Slug)
		}
		s.bySlug[p.Slug] = i
	}
	return s, nil
}

// Parse builds a post from a Markdown file. fallbackSlug is used when the
// front matter has no slug.
func Parse(fallbackSlug string, data []byte) (Post, error) {
	meta, body, err := splitFrontMatter(data)
	if err != nil {
		return Post{}, err
	}
	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return Post{}, fmt.Errorf("front matter: %w", err)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return Post{}, errMissingTitle
	}
	if strings.TrimSpace(fm.Date) == "" {
		return Post{}, errMissingDate
	}
	date, ok := format.ParseTimestamp(fm.Date)
	if !ok {
		return Post{}, fmt.Errorf("front matter: invalid date %q", fm.Date)
	}
	slug := format.Slug(fm.Slug)
	if slug == "" {
		slug = format.Slug(fallbackSlug)
	}

	var html bytes.Buffer
	if err := markdown.Convert(body, &html); err != nil {
		return Post{}, fmt.Errorf("render markdown: %w", err)
	}
	return Post{
		Slug:    slug,
		Title:   strings.TrimSpace(fm.Title),
		Summary: strings.TrimSpace(fm.Summary),
		Author:  strings.TrimSpace(fm.Author),
		Date:    date,
		Tags:    fm.Tags,
		Draft:   fm.Draft,
		// goldmark escapes raw HTML unless WithUnsafe is set, so the output is trusted.
		HTML: template.HTML(html.String()),
	}, nil
}

func splitFrontMatter(data []byte) (meta, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(frontMatterDelim+"\n")) {
		return nil, nil, ErrNoFrontMatter
	}
	rest := data[len(frontMatterDelim)+1:]
	end := bytes.Index(rest, []byte("\n"+frontMatterDelim+"\n"))
	if end < 0 {
		if bytes.HasSuffix(rest, []byte("\n"+frontMatterDelim)) {
			return rest[:len(rest)-len(frontMatterDelim)-1], nil, nil
		}
		return nil, nil, ErrNoFrontMatter
	}
	return rest[:end], rest[end+len(frontMatterDelim)+2:], nil
}

// All returns the published posts, newest first.
func (s *Store) All() []Post {
	return s.posts
}

// Latest returns up to n posts, newest first.
func (s *Store) Latest(n int) []Post {
	if n >= 0 && len(s.posts) > n {
		return s.posts[:n]
	}
	return s.posts
}

func (s *Store) Get(slug string) (Post, bool) {
	i, ok := s.bySlug[slug]
	if !ok {
		return Post{}, false
	}
	return s.posts[i], true
}
