// Package changefeed carries "collection changed" notices between writers
// and live subscribers, either inside one process or across processes via NATS.
package changefeed

import (
	"context"
	"sync"
)

// Bus publishes and delivers change notices per collection. A notice has no
// payload; subscribers re-read the collection they care about.
type Bus interface {
	Publish(ctx context.Context, collection string) error
	Subscribe(collection string, fn func()) (unsubscribe func(), err error)
}

// LocalBus is an in-process Bus. Handlers run synchronously on the
// publishing goroutine and must not block.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]func())}
}

func (b *LocalBus) Publish(_ context.Context, collection string) error {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.subs[collection]))
	for _, fn := range b.subs[collection] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (b *LocalBus) Subscribe(collection string, fn func()) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[int]func())
	}
	b.subs[collection][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[collection], id)
			b.mu.Unlock()
		})
	}, nil
}
