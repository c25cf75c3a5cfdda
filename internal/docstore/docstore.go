// Package docstore is a small document-store abstraction with in-memory,
// Postgres (JSONB) and MongoDB backends.
//
// Documents are schemaless field maps grouped into named collections. Every
// backend stamps a server-side creation time into FieldCreatedAt and supports
// atomic delta updates (increment, array union, array remove) guarded by
// optional array-membership preconditions.
package docstore

import (
	"context"
	"errors"
	"time"
)

// FieldCreatedAt is the server-assigned creation timestamp field.
const FieldCreatedAt = "createdAt"

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConditionFailed is returned by Update when a precondition did not hold.
	ErrConditionFailed = errors.New("docstore: precondition failed")
)

// Document is a stored document. Fields never contains the id.
type Document struct {
	ID     string
	Fields map[string]any
}

// CreatedAt returns the server timestamp of the document, or the zero time.
func (d Document) CreatedAt() time.Time {
	t, _ := AsTime(d.Fields[FieldCreatedAt])
	return t
}

// Direction is a query sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Order selects the field a query or subscription is ordered by.
type Order struct {
	Field     string
	Direction Direction
}

// NewestFirst orders by creation time, most recent first.
var NewestFirst = Order{Field: FieldCreatedAt, Direction: Desc}

// OpKind enumerates update operations.
type OpKind int

const (
	OpSet OpKind = iota
	OpIncrement
	OpArrayUnion
	OpArrayRemove
)

// Op is a single field mutation applied by Update.
type Op struct {
	Kind   OpKind
	Field  string
	Value  any
	Delta  int64
	Values []any
}

func Set(field string, v any) Op { return Op{Kind: OpSet, Field: field, Value: v} }

func Increment(field string, n int64) Op { return Op{Kind: OpIncrement, Field: field, Delta: n} }

func ArrayUnion(field string, vals ...any) Op {
	return Op{Kind: OpArrayUnion, Field: field, Values: vals}
}

func ArrayRemove(field string, vals ...any) Op {
	return Op{Kind: OpArrayRemove, Field: field, Values: vals}
}

// Cond is an array-membership precondition checked atomically with the update.
type Cond struct {
	Field    string
	Value    any
	Contains bool
}

func ArrayContains(field string, v any) Cond { return Cond{Field: field, Value: v, Contains: true} }

func ArrayNotContains(field string, v any) Cond { return Cond{Field: field, Value: v} }

// Store is the persistence contract consumed by the application.
type Store interface {
	Create(ctx context.Context, collection string, fields map[string]any) (Document, error)
	// Put creates or replaces the document with the given id. An existing
	// document keeps its creation timestamp.
	Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, order Order) ([]Document, error)
	// Update applies all ops in one atomic step and returns the result.
	Update(ctx context.Context, collection, id string, ops []Op, conds ...Cond) (Document, error)
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// LiveStore is a Store that can push complete ordered snapshots of a
// collection whenever it changes.
type LiveStore interface {
	Store
	Subscribe(ctx context.Context, collection string, order Order,
		onSnapshot func([]Document), onError func(error)) (unsubscribe func(), err error)
}
