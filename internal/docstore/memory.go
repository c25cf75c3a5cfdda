package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	seq    uint64
	fields map[string]any
}

// MemoryStore is a development and test backend. All operations run under
// a single lock, so every Update is trivially atomic.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryRecord
	seq         uint64
	lastStamp   time.Time
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memoryRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// stamp returns a strictly increasing server timestamp. Caller holds mu.
func (s *MemoryStore) stamp() time.Time {
	t := s.now()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return t
}

func (s *MemoryStore) collection(name string) map[string]*memoryRecord {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]*memoryRecord)
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Create(_ context.Context, collection string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	rec := &memoryRecord{fields: cloneFields(fields)}
	s.seq++
	rec.seq = s.seq
	rec.fields[FieldCreatedAt] = s.stamp()
	s.collection(collection)[id] = rec
	return Document{ID: id, Fields: cloneFields(rec.fields)}, nil
}

func (s *MemoryStore) Put(_ context.Context, collection, id string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec := &memoryRecord{fields: cloneFields(fields)}
	if prev, ok := c[id]; ok {
		rec.seq = prev.seq
		rec.fields[FieldCreatedAt] = prev.fields[FieldCreatedAt]
	} else {
		s.seq++
		rec.seq = s.seq
		rec.fields[FieldCreatedAt] = s.stamp()
	}
	c[id] = rec
	return Document{ID: id, Fields: cloneFields(rec.fields)}, nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: cloneFields(rec.fields)}, nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, order Order) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		id  string
		rec *memoryRecord
	}
	rows := make([]row, 0, len(s.collections[collection]))
	for id, rec := range s.collections[collection] {
		rows = append(rows, row{id: id, rec: rec})
	}
	sort.Slice(rows, func(i, j int) bool {
		c := compareValues(rows[i].rec.fields[order.Field], rows[j].rec.fields[order.Field])
		if c == 0 {
			c = compareSeq(rows[i].rec.seq, rows[j].rec.seq)
		}
		if order.Direction == Desc {
			return c > 0
		}
		return c < 0
	})

	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = Document{ID: r.id, Fields: cloneFields(r.rec.fields)}
	}
	return out, nil
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, ops []Op, conds ...Cond) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	for _, c := range conds {
		if containsValue(AsSlice(rec.fields[c.Field]), c.Value) != c.Contains {
			return Document{}, ErrConditionFailed
		}
	}

	next := cloneFields(rec.fields)
	for _, op := range ops {
		applyOp(next, op)
	}
	rec.fields = next
	return Document{ID: id, Fields: cloneFields(next)}, nil
}

func applyOp(fields map[string]any, op Op) {
	switch op.Kind {
	case OpSet:
		fields[op.Field] = cloneValue(op.Value)
	case OpIncrement:
		cur, _ := AsInt64(fields[op.Field])
		fields[op.Field] = cur + op.Delta
	case OpArrayUnion:
		list := AsSlice(fields[op.Field])
		out := make([]any, 0, len(list)+len(op.Values))
		out = append(out, list...)
		for _, v := range op.Values {
			if !containsValue(out, v) {
				out = append(out, v)
			}
		}
		fields[op.Field] = out
	case OpArrayRemove:
		list := AsSlice(fields[op.Field])
		out := make([]any, 0, len(list))
		for _, v := range list {
			if !containsValue(op.Values, v) {
				out = append(out, v)
			}
		}
		fields[op.Field] = out
	}
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}
