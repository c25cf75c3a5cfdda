// Package content serves the read-heavy published collections (artworks,
// posts, site settings) through a TTL cache and invalidates on every write.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/internal/ttlcache"
)

const (
	CollectionArtworks = "artworks"
	CollectionPosts    = "posts"
	CollectionSettings = "settings"

	settingsID = "site"
)

var ErrNotFound = errors.New("content not found")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TTLs sets how long each collection stays cached.
type TTLs struct {
	Artworks time.Duration
	Posts    time.Duration
	Settings time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{Artworks: time.Minute, Posts: time.Minute, Settings: 5 * time.Minute}
}

type Service struct {
	store docstore.Store
	cache ttlcache.Cache
	ttl   TTLs
	log   *zap.Logger
}

func New(store docstore.Store, cache ttlcache.Cache, ttl TTLs, log *zap.Logger) *Service {
	def := DefaultTTLs()
	if ttl.Artworks <= 0 {
		ttl.Artworks = def.Artworks
	}
	if ttl.Posts <= 0 {
		ttl.Posts = def.Posts
	}
	if ttl.Settings <= 0 {
		ttl.Settings = def.Settings
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, ttl: ttl, log: log}
}

// Sync drops every cached entry so the next reads hit the store.
func (s *Service) Sync(ctx context.Context) {
	s.cache.Clear(ctx)
	s.log.Info("content cache cleared")
}

func (s *Service) invalidate(ctx context.Context, collection string) {
	s.cache.InvalidatePrefix(ctx, collection+":")
}

// toFields converts a content value to document fields through its JSON
// shape. id and createdAt are owned by the store and removed.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "id")
	delete(fields, docstore.FieldCreatedAt)
	return fields, nil
}

func fromDocument[T any](doc docstore.Document, setID func(*T, string)) (T, error) {
	var out T
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	if t := doc.CreatedAt(); !t.IsZero() {
		fields[docstore.FieldCreatedAt] = t
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	setID(&out, doc.ID)
	return out, nil
}

func (s *Service) get(ctx context.Context, collection, id string) (docstore.Document, error) {
	doc, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return docstore.Document{}, ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *Service) save(ctx context.Context, collection, id string, v any) (docstore.Document, error) {
	fields, err := toFields(v)
	if err != nil {
		return docstore.Document{}, err
	}
	var doc docstore.Document
	if id == "" {
		doc, err = s.store.Create(ctx, collection, fields)
	} else {
		doc, err = s.store.Put(ctx, collection, id, fields)
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("save %s: %w", collection, err)
	}
	s.invalidate(ctx, collection)
	return doc, nil
}

func (s *Service) remove(ctx context.Context, collection, id string) error {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	s.invalidate(ctx, collection)
	return nil
}

// cached reads key through the TTL cache. Cached values are shared between
// hits, so every caller gets its own copy made by clone.
func cached[T any](ctx context.Context, s *Service, key string, ttl time.Duration, clone func(T) T, load func(context.Context) (T, error)) (T, error) {
	v, err := ttlcache.Load(ctx, s.cache, key, ttl, load)
	if err != nil {
		return v, err
	}
	return clone(v), nil
}

func cloneAll[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

