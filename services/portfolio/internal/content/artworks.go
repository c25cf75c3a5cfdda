package content

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/example/art-portfolio/internal/docstore"
)

type Artwork struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Medium      string    `json:"medium,omitempty"`
	Year        int       `json:"year,omitempty"`
	Tags        []string  `json:"tags"`
	Published   bool      `json:"published"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (a Artwork) clone() Artwork {
	a.Tags = slices.Clone(a.Tags)
	return a
}

func cloneArtworks(in []Artwork) []Artwork { return cloneAll(in, Artwork.clone) }

var artworkOrder = docstore.Order{Field: "order", Direction: docstore.Asc}

func decodeArtwork(doc docstore.Document) (Artwork, error) {
	a, err := fromDocument(doc, func(a *Artwork, id string) { a.ID = id })
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a, err
}

// ListArtworks returns artworks by display order.
func (s *Service) ListArtworks(ctx context.Context, publishedOnly bool) ([]Artwork, error) {
	key := "artworks:all"
	if publishedOnly {
		key = "artworks:published"
	}
	return cached(ctx, s, key, s.ttl.Artworks, cloneArtworks, func(ctx context.Context) ([]Artwork, error) {
		docs, err := s.store.Query(ctx, CollectionArtworks, artworkOrder)
		if err != nil {
			return nil, err
		}
		out := make([]Artwork, 0, len(docs))
		for _, d := range docs {
			a, err := decodeArtwork(d)
			if err != nil {
				return nil, err
			}
			if publishedOnly && !a.Published {
				continue
			}
			out = append(out, a)
		}
		return out, nil
	})
}

func (s *Service) GetArtwork(ctx context.Context, id string) (Artwork, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Artwork{}, ErrNotFound
	}
	return cached(ctx, s, "artworks:id:"+id, s.ttl.Artworks, Artwork.clone, func(ctx context.Context) (Artwork, error) {
		doc, err := s.get(ctx, CollectionArtworks, id)
		if err != nil {
			return Artwork{}, err
		}
		return decodeArtwork(doc)
	})
}

// SaveArtwork creates the artwork when ID is empty and replaces it otherwise.
func (s *Service) SaveArtwork(ctx context.Context, a Artwork) (Artwork, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.Title = strings.TrimSpace(a.Title)
	a.ImageURL = strings.TrimSpace(a.ImageURL)
	if a.Title == "" {
		return Artwork{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if a.ImageURL == "" {
		return Artwork{}, &ValidationError{Field: "imageUrl", Reason: "is required"}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	doc, err := s.save(ctx, CollectionArtworks, a.ID, a)
	if err != nil {
		return Artwork{}, err
	}
	return decodeArtwork(doc)
}

func (s *Service) DeleteArtwork(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	return s.remove(ctx, CollectionArtworks, id)
}
