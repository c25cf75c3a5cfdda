// Package livecache keeps an in-memory, always-complete view of the comments
// collection, fed by a standing docstore subscription.
package livecache

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/services/portfolio/internal/comments"
)

type snapshot struct {
	version  uint64
	comments []comments.Comment
}

// Cache is safe for concurrent use. Each snapshot replaces the previous one
// with a single pointer store, so readers never see a partial collection.
type Cache struct {
	log  *zap.Logger
	snap atomic.Pointer[snapshot]

	ready     chan struct{}
	readyOnce sync.Once

	mu          sync.Mutex
	err         error
	closed      bool
	unsubscribe func()
	watchers    map[chan uint64]struct{}
}

// Start subscribes to the comments collection newest first. The first
// snapshot arrives asynchronously; use WaitReady to block on it.
func Start(ctx context.Context, store docstore.LiveStore, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{
		log:      log,
		ready:    make(chan struct{}),
		watchers: make(map[chan uint64]struct{}),
	}
	unsub, err := store.Subscribe(ctx, comments.Collection, docstore.NewestFirst, c.onSnapshot, c.onError)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
	return c, nil
}

func (c *Cache) onSnapshot(docs []docstore.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	var version uint64 = 1
	if prev := c.snap.Load(); prev != nil {
		version = prev.version + 1
	}
	c.snap.Store(&snapshot{version: version, comments: comments.DecodeAll(docs)})
	c.err = nil
	c.readyOnce.Do(func() { close(c.ready) })

	for ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- version
	}
}

func (c *Cache) onError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.err = err
	c.log.Warn("livecache: subscription error, keeping last snapshot", zap.Error(err))
}

// WaitReady blocks until the first snapshot has been applied.
func (c *Cache) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loading reports true until the first snapshot and while the subscription
// is failing.
func (c *Cache) Loading() bool {
	if c.snap.Load() == nil {
		return true
	}
	return c.Err() != nil
}

// Err returns the last subscription error, cleared by the next snapshot.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Version increases by one for every applied snapshot; zero before the first.
func (c *Cache) Version() uint64 {
	if s := c.snap.Load(); s != nil {
		return s.version
	}
	return 0
}

func (c *Cache) current() []comments.Comment {
	if s := c.snap.Load(); s != nil {
		return s.comments
	}
	return nil
}

func (c *Cache) filter(keep func(comments.Comment) bool) []comments.Comment {
	out := make([]comments.Comment, 0)
	for _, cm := range c.current() {
		if keep(cm) {
			out = append(out, cm)
		}
	}
	return out
}

// All returns the whole snapshot, newest first. The slice must not be modified.
func (c *Cache) All() []comments.Comment {
	return c.current()
}

// Comments returns every comment on targetID regardless of target type.
func (c *Cache) Comments(targetID string) []comments.Comment {
	return c.filter(func(cm comments.Comment) bool { return cm.TargetID == targetID })
}

func (c *Cache) TopLevel(targetID string) []comments.Comment {
	return c.filter(func(cm comments.Comment) bool {
		return cm.TargetID == targetID && cm.IsTopLevel()
	})
}

func (c *Cache) Replies(targetID, parentID string) []comments.Comment {
	return c.filter(func(cm comments.Comment) bool {
		return cm.TargetID == targetID && cm.ParentID != nil && *cm.ParentID == parentID
	})
}

// HasLiked is a membership test against the comment as last snapshotted.
func (c *Cache) HasLiked(cm comments.Comment, sessionID string) bool {
	return cm.LikedBySession(sessionID)
}

// Thread groups the comments of targetID into top-level comments with replies.
func (c *Cache) Thread(targetID string) []comments.ThreadNode {
	return comments.BuildThreads(c.Comments(targetID))
}

// Watch returns a channel that receives the newest snapshot version after
// every change. Pending versions are coalesced. The channel is closed by
// stop or Close.
func (c *Cache) Watch() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.watchers[ch]; ok {
				delete(c.watchers, ch)
				close(ch)
			}
		})
	}
}

// Close unsubscribes. Snapshots delivered afterwards are ignored.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsub := c.unsubscribe
	for ch := range c.watchers {
		delete(c.watchers, ch)
		close(ch)
	}
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
