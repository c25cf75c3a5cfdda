package docstore

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/changefeed"
)

// Live turns any Store into a LiveStore: successful writes publish a change
// notice on the bus, and subscriptions re-query the collection on each
// notice and deliver the complete ordered result.
type Live struct {
	Store
	bus changefeed.Bus
	log *zap.Logger
}

var _ LiveStore = (*Live)(nil)

func NewLive(store Store, bus changefeed.Bus, log *zap.Logger) *Live {
	if log == nil {
		log = zap.NewNop()
	}
	return &Live{Store: store, bus: bus, log: log}
}

func (l *Live) notify(ctx context.Context, collection string) {
	if err := l.bus.Publish(ctx, collection); err != nil {
		l.log.Warn("docstore: publish change notice", zap.String("collection", collection), zap.Error(err))
	}
}

func (l *Live) Create(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	doc, err := l.Store.Create(ctx, collection, fields)
	if err == nil {
		l.notify(ctx, collection)
	}
	return doc, err
}

func (l *Live) Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	doc, err := l.Store.Put(ctx, collection, id, fields)
	if err == nil {
		l.notify(ctx, collection)
	}
	return doc, err
}

func (l *Live) Update(ctx context.Context, collection, id string, ops []Op, conds ...Cond) (Document, error) {
	doc, err := l.Store.Update(ctx, collection, id, ops, conds...)
	if err == nil {
		l.notify(ctx, collection)
	}
	return doc, err
}

func (l *Live) Delete(ctx context.Context, collection, id string) error {
	err := l.Store.Delete(ctx, collection, id)
	if err == nil {
		l.notify(ctx, collection)
	}
	return err
}

type subscription struct {
	mu     sync.Mutex
	closed bool
	kick   chan struct{}
	cancel context.CancelFunc
}

func (s *subscription) trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Subscribe delivers an initial snapshot and then one snapshot per burst of
// change notices. Callbacks for one subscription never run concurrently and
// never run after unsubscribe has returned. Callbacks must not call
// unsubscribe themselves.
func (l *Live) Subscribe(ctx context.Context, collection string, order Order,
	onSnapshot func([]Document), onError func(error)) (func(), error) {

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{kick: make(chan struct{}, 1), cancel: cancel}

	unsubBus, err := l.bus.Subscribe(collection, s.trigger)
	if err != nil {
		cancel()
		return nil, err
	}
	s.trigger()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.kick:
			}
			docs, err := l.Store.Query(ctx, collection, order)

			s.mu.Lock()
			if s.closed || ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			if err != nil {
				if onError != nil {
					onError(err)
				}
			} else {
				onSnapshot(docs)
			}
			s.mu.Unlock()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubBus()
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			cancel()
		})
	}, nil
}
