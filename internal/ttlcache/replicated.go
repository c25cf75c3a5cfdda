package ttlcache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultInvalidationSubject carries invalidations between instances.
const DefaultInvalidationSubject = "portfolio.cache.invalidate"

type invalidation struct {
	Origin string `json:"origin"`
	Op     string `json:"op"` // "key", "prefix" or "clear"
	Key    string `json:"key,omitempty"`
}

// Replicated wraps a process-local Cache and mirrors every invalidation to
// the other instances over NATS, so a write served by one instance does not
// leave stale entries in the others.
type Replicated struct {
	Cache
	nc      *nats.Conn
	subject string
	origin  string
	sub     *nats.Subscription
	log     *zap.Logger
}

func NewReplicated(inner Cache, nc *nats.Conn, subject string, log *zap.Logger) (*Replicated, error) {
	if subject == "" {
		subject = DefaultInvalidationSubject
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Replicated{Cache: inner, nc: nc, subject: subject, origin: uuid.NewString(), log: log}
	sub, err := nc.Subscribe(subject, r.handle)
	if err != nil {
		return nil, err
	}
	r.sub = sub
	return r, nil
}

func (r *Replicated) handle(m *nats.Msg) {
	var inv invalidation
	if err := json.Unmarshal(m.Data, &inv); err != nil {
		// Bare payloads name a single key; empty or ALL clears everything.
		key := strings.TrimSpace(string(m.Data))
		if key == "" || strings.EqualFold(key, "ALL") {
			inv = invalidation{Op: "clear"}
		} else {
			inv = invalidation{Op: "key", Key: key}
		}
	}
	if inv.Origin == r.origin {
		return
	}
	ctx := context.Background()
	switch inv.Op {
	case "key":
		r.Cache.Invalidate(ctx, inv.Key)
	case "prefix":
		r.Cache.InvalidatePrefix(ctx, inv.Key)
	case "clear":
		r.Cache.Clear(ctx)
	default:
		r.log.Warn("ttlcache: unknown invalidation", zap.String("op", inv.Op))
	}
}

func (r *Replicated) broadcast(op, key string) {
	b, _ := json.Marshal(invalidation{Origin: r.origin, Op: op, Key: key})
	if err := r.nc.Publish(r.subject, b); err != nil {
		r.log.Warn("ttlcache: publish invalidation", zap.String("op", op), zap.Error(err))
	}
}

func (r *Replicated) Invalidate(ctx context.Context, key string) {
	r.Cache.Invalidate(ctx, key)
	r.broadcast("key", key)
}

func (r *Replicated) InvalidatePrefix(ctx context.Context, prefix string) {
	r.Cache.InvalidatePrefix(ctx, prefix)
	r.broadcast("prefix", prefix)
}

func (r *Replicated) Clear(ctx context.Context) {
	r.Cache.Clear(ctx)
	r.broadcast("clear", "")
}

// Close stops listening for remote invalidations.
func (r *Replicated) Close() error {
	return r.sub.Unsubscribe()
}
