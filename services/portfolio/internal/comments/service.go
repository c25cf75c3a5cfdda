package comments

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/internal/identity"
	"github.com/example/art-portfolio/internal/platform/analytics"
)

// EventPublisher receives fire-and-forget analytics events.
type EventPublisher interface {
	Publish(subject, eventName, sessionID string, props map[string]any)
}

var _ EventPublisher = (*analytics.Publisher)(nil)

type Service struct {
	store  docstore.Store
	events EventPublisher
	log    *zap.Logger
}

// New builds a Service. events and log may be nil.
func New(store docstore.Store, events EventPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, events: events, log: log}
}

func (s *Service) publish(subject, name, sessionID string, props map[string]any) {
	if s.events != nil {
		s.events.Publish(subject, name, sessionID, props)
	}
}

// CreateInput is the payload of Create. Empty ParentID means top-level.
type CreateInput struct {
	TargetID   string
	TargetType TargetType
	Content    string
	AuthorName string
	ParentID   string
	SessionID  string
}

// List returns the comments of one target, newest first.
func (s *Service) List(ctx context.Context, targetID string, targetType TargetType) ([]Comment, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, invalid("targetId", "is required")
	}
	if targetType == "" {
		return nil, invalid("targetType", "is required")
	}
	if !targetType.Valid() {
		return nil, invalid("targetType", "must be artwork or post")
	}
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Comment, 0)
	for _, c := range all {
		if c.TargetID == targetID && c.TargetType == targetType {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListAll returns every comment, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Comment, error) {
	docs, err := s.store.Query(ctx, Collection, docstore.NewestFirst)
	if err != nil {
		observeOp("list", err)
		return nil, storageErr("list", err)
	}
	return DecodeAll(docs), nil
}

func (s *Service) Get(ctx context.Context, id string) (Comment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Comment{}, invalid("id", "is required")
	}
	doc, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, storageErr("get", err)
	}
	return Decode(doc), nil
}

// Create validates in, resolves the author name once and stores the comment.
func (s *Service) Create(ctx context.Context, in CreateInput) (Comment, error) {
	targetID := strings.TrimSpace(in.TargetID)
	content := strings.TrimSpace(in.Content)
	author := strings.TrimSpace(in.AuthorName)
	parentID := strings.TrimSpace(in.ParentID)

	switch {
	case targetID == "":
		return Comment{}, invalid("targetId", "is required")
	case in.TargetType == "":
		return Comment{}, invalid("targetType", "is required")
	case !in.TargetType.Valid():
		return Comment{}, invalid("targetType", "must be artwork or post")
	case content == "":
		return Comment{}, invalid("content", "must not be blank")
	case utf8.RuneCountInString(content) > MaxContentLength:
		return Comment{}, invalid("content", "is too long")
	case utf8.RuneCountInString(author) > MaxAuthorNameLength:
		return Comment{}, invalid("authorName", "is too long")
	}

	var parent any
	if parentID != "" {
		p, err := s.Get(ctx, parentID)
		if errors.Is(err, ErrNotFound) {
			return Comment{}, invalid("parentId", "parent comment does not exist")
		}
		if err != nil {
			return Comment{}, err
		}
		if p.TargetID != targetID || p.TargetType != in.TargetType {
			return Comment{}, invalid("parentId", "parent belongs to another target")
		}
		if !p.IsTopLevel() {
			return Comment{}, invalid("parentId", "replies cannot be nested")
		}
		parent = parentID
	}

	if author == "" {
		author = identity.AnonymousName()
	}

	doc, err := s.store.Create(ctx, Collection, map[string]any{
		FieldTargetID:   targetID,
		FieldTargetType: string(in.TargetType),
		FieldParentID:   parent,
		FieldAuthorName: author,
		FieldContent:    content,
		FieldLikes:      int64(0),
		FieldLikedBy:    []any{},
	})
	observeOp("create", err)
	if err != nil {
		return Comment{}, storageErr("create", err)
	}
	c := Decode(doc)
	s.log.Debug("comment created", zap.String("comment_id", c.ID), zap.String("target_id", c.TargetID))
	s.publish(analytics.SubjectCommentCreated, "comment_created", in.SessionID, map[string]any{
		"comment_id":  c.ID,
		"target_id":   c.TargetID,
		"target_type": string(c.TargetType),
		"reply":       !c.IsTopLevel(),
	})
	return c, nil
}

// Delete removes the comment and its direct replies. Missing ids are not
// an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("id", "is required")
	}
	if err := s.store.Delete(ctx, Collection, id); err != nil {
		observeOp("delete", err)
		return storageErr("delete", err)
	}
	docs, err := s.store.Query(ctx, Collection, docstore.NewestFirst)
	if err != nil {
		observeOp("delete", err)
		return storageErr("delete replies", err)
	}
	replies := 0
	for _, d := range docs {
		if p, _ := d.Fields[FieldParentID].(string); p != id {
			continue
		}
		if err := s.store.Delete(ctx, Collection, d.ID); err != nil {
			observeOp("delete", err)
			return storageErr("delete replies", err)
		}
		replies++
	}
	observeOp("delete", nil)
	s.log.Info("comment deleted", zap.String("comment_id", id), zap.Int("replies", replies))
	s.publish(analytics.SubjectCommentDeleted, "comment_deleted", "", map[string]any{
		"comment_id": id,
		"replies":    replies,
	})
	return nil
}
