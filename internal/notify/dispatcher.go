package notify

import (
	"context"
	"relay-story-server/internal/worker"
	"time"

	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Notifier fans events out after the mutation that produced them has
// committed. Implementations never report failure to the caller.
type Notifier interface {
	Notify(topic string, payload any)
}

// Dispatcher hands events to the worker pool so publishing never holds up
// the request that produced them. Events on one topic are published in the
// order Notify was called.
type Dispatcher struct {
	publisher Publisher
	pool      *worker.WorkerPool
}

func NewDispatcher(publisher Publisher, pool *worker.WorkerPool) *Dispatcher {
	return &Dispatcher{publisher: publisher, pool: pool}
}

func (d *Dispatcher) Notify(topic string, payload any) {
	queued := d.pool.SubmitKeyed(topic, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return d.publisher.Publish(ctx, topic, payload)
	})
	if !queued {
		log.Warn().Str("topic", topic).Msg("event dropped")
	}
}
