// Package comments implements anonymous threaded comments and the per-session
// like toggle on top of a docstore collection.
package comments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/internal/identity"
)

// Collection is the single flat collection all comments live in.
const Collection = "comments"

// Stored field names.
const (
	FieldTargetID   = "targetId"
	FieldTargetType = "targetType"
	FieldParentID   = "parentId"
	FieldAuthorName = "authorName"
	FieldContent    = "content"
	FieldLikes      = "likes"
	FieldLikedBy    = "likedBy"
	FieldUpdatedAt  = "updatedAt"
)

const (
	MaxContentLength    = 2000
	MaxAuthorNameLength = 50
)

type TargetType string

const (
	TargetArtwork TargetType = "artwork"
	TargetPost    TargetType = "post"
)

func (t TargetType) Valid() bool {
	return t == TargetArtwork || t == TargetPost
}

// Comment is the fully populated read model. Every read path goes through
// Decode, so optional fields are never missing here.
type Comment struct {
	ID         string     `json:"id"`
	TargetID   string     `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	ParentID   *string    `json:"parentId"`
	AuthorName string     `json:"authorName"`
	Content    string     `json:"content"`
	Likes      int64      `json:"likes"`
	LikedBy    []string   `json:"likedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

func (c Comment) IsTopLevel() bool { return c.ParentID == nil }

// LikedBySession reports whether sessionID is in LikedBy.
func (c Comment) LikedBySession(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	for _, s := range c.LikedBy {
		if s == sessionID {
			return true
		}
	}
	return false
}

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ErrNotFound is returned when an operation references a missing comment.
var ErrNotFound = errors.New("comment not found")

// StorageError wraps a failed persistence call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("comments: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Decode turns a stored document into a Comment, filling defaults for
// anything a legacy or partially written document lacks.
func Decode(doc docstore.Document) Comment {
	f := doc.Fields
	c := Comment{
		ID:         doc.ID,
		TargetID:   stringField(f, FieldTargetID),
		TargetType: TargetType(stringField(f, FieldTargetType)),
		AuthorName: strings.TrimSpace(stringField(f, FieldAuthorName)),
		Content:    stringField(f, FieldContent),
		LikedBy:    []string{},
		CreatedAt:  doc.CreatedAt(),
	}
	if p := strings.TrimSpace(stringField(f, FieldParentID)); p != "" {
		c.ParentID = &p
	}
	if c.AuthorName == "" {
		c.AuthorName = identity.AnonymousNameFor(doc.ID)
	}
	for _, v := range docstore.AsSlice(f[FieldLikedBy]) {
		if s, ok := v.(string); ok && s != "" {
			c.LikedBy = append(c.LikedBy, s)
		}
	}
	if n, ok := docstore.AsInt64(f[FieldLikes]); ok && n > 0 {
		c.Likes = n
	}
	if t, ok := docstore.AsTime(f[FieldUpdatedAt]); ok && !t.IsZero() {
		c.UpdatedAt = &t
	}
	return c
}

// DecodeAll decodes docs preserving their order.
func DecodeAll(docs []docstore.Document) []Comment {
	out := make([]Comment, 0, len(docs))
	for _, d := range docs {
		out = append(out, Decode(d))
	}
	return out
}

func stringField(f map[string]any, key string) string {
	s, _ := f[key].(string)
	return s
}
