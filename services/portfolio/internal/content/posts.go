package content

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/example/art-portfolio/internal/docstore"
)

type Post struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Body        string     `json:"body"`
	CoverURL    string     `json:"coverUrl,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (p Post) clone() Post {
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		p.PublishedAt = &at
	}
	return p
}

func clonePosts(in []Post) []Post { return cloneAll(in, Post.clone) }

func decodePost(doc docstore.Document) (Post, error) {
	return fromDocument(doc, func(p *Post, id string) { p.ID = id })
}

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// ListPosts returns posts newest first.
func (s *Service) ListPosts(ctx context.Context, publishedOnly bool) ([]Post, error) {
	key := "posts:all"
	if publishedOnly {
		key = "posts:published"
	}
	return cached(ctx, s, key, s.ttl.Posts, clonePosts, func(ctx context.Context) ([]Post, error) {
		return s.queryPosts(ctx, publishedOnly)
	})
}

func (s *Service) queryPosts(ctx context.Context, publishedOnly bool) ([]Post, error) {
	docs, err := s.store.Query(ctx, CollectionPosts, docstore.NewestFirst)
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(docs))
	for _, d := range docs {
		p, err := decodePost(d)
		if err != nil {
			return nil, err
		}
		if publishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Post{}, ErrNotFound
	}
	return cached(ctx, s, "posts:slug:"+slug, s.ttl.Posts, Post.clone, func(ctx context.Context) (Post, error) {
		posts, err := s.queryPosts(ctx, false)
		if err != nil {
			return Post{}, err
		}
		for _, p := range posts {
			if p.Slug == slug {
				return p, nil
			}
		}
		return Post{}, ErrNotFound
	})
}

// SavePost creates or replaces a post. A blank slug is derived from the
// title; slugs are unique across posts.
func (s *Service) SavePost(ctx context.Context, p Post) (Post, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = Slugify(p.Slug)
	if p.Title == "" {
		return Post{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Slug == "" {
		return Post{}, &ValidationError{Field: "slug", Reason: "cannot be derived from title"}
	}

	existing, err := s.queryPosts(ctx, false)
	if err != nil {
		return Post{}, err
	}
	for _, e := range existing {
		if e.Slug == p.Slug && e.ID != p.ID {
			return Post{}, &ValidationError{Field: "slug", Reason: "is already used"}
		}
		if e.ID == p.ID && p.PublishedAt == nil {
			p.PublishedAt = e.PublishedAt
		}
	}
	if p.Published && p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}

	doc, err := s.save(ctx, CollectionPosts, p.ID, p)
	if err != nil {
		return Post{}, err
	}
	return decodePost(doc)
}

func (s *Service) DeletePost(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	return s.remove(ctx, CollectionPosts, id)
}
