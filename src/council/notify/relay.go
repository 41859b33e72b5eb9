package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/governance"
)

type publisher interface {
	Publish(ctx context.Context, ev governance.Event) error
}

// Relay follows the event stream and hands each entry to an announcer, so
// slow or rate-limited Discord sends never hold up the request that
// committed the event.
type Relay struct {
	stream *Stream
	out    publisher
	log    *zap.Logger
	block  time.Duration
}

func NewRelay(stream *Stream, out publisher, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{stream: stream, out: out, log: log, block: 5 * time.Second}
}

// Run relays events appended after it starts until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	last, err := r.stream.LastID(ctx)
	if err != nil {
		return err
	}
	for ctx.Err() == nil {
		evs, next, err := r.stream.Tail(ctx, last, 50, r.block)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.log.Warn("read event stream", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}
		last = next
		for _, ev := range evs {
			if err := r.out.Publish(ctx, ev); err != nil {
				r.log.Warn("announce event", zap.String("kind", ev.Kind), zap.Error(err))
			}
		}
	}
	return nil
}
