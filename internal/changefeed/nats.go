package changefeed

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix is prepended to the collection name to form the NATS subject.
const SubjectPrefix = "docstore.changed."

// NATSBus fans change notices out to every process subscribed to the
// collection subject. Core NATS delivery is at-most-once; a lost notice is
// healed by the next write, which always triggers a full re-read.
type NATSBus struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewNATSBus(nc *nats.Conn, log *zap.Logger) *NATSBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSBus{nc: nc, log: log}
}

func (b *NATSBus) Publish(_ context.Context, collection string) error {
	return b.nc.Publish(SubjectPrefix+collection, nil)
}

func (b *NATSBus) Subscribe(collection string, fn func()) (func(), error) {
	sub, err := b.nc.Subscribe(SubjectPrefix+collection, func(*nats.Msg) { fn() })
	if err != nil {
		return nil, err
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			b.log.Warn("changefeed: unsubscribe", zap.String("collection", collection), zap.Error(err))
		}
	}, nil
}
