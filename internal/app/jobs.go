/**
 * @description
 * Scheduled jobs for the token-service. Expiry is a data-level property of
 * each token row, so the sweep never mutates anything; it reports how many
 * unused tokens have passed their deadline, for operators and downstream
 * consumers of the events exchange.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/token-service/internal/domain"
	"github.com/transfa/token-service/internal/store"
	"github.com/transfa/token-service/pkg/rabbitmq"
)

const sweepTimeout = 30 * time.Second

// ExpirySweeper counts expired unused tokens on a schedule.
type ExpirySweeper struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
}

// NewExpirySweeper creates a new sweeper instance.
func NewExpirySweeper(repo store.Repository, producer rabbitmq.Publisher) *ExpirySweeper {
	return &ExpirySweeper{repo: repo, eventProducer: producer}
}

// Run executes one sweep. It is registered as a cron job.
func (j *ExpirySweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	count, err := j.repo.CountExpiredActiveTokens(ctx)
	if err != nil {
		log.Printf("level=error component=expiry_sweep msg=\"sweep failed\" err=%v", err)
		return
	}
	log.Printf("level=info component=expiry_sweep expired_active_tokens=%d", count)

	if j.eventProducer == nil {
		return
	}
	event := domain.ExpirySweepEvent{
		EventID:      uuid.New(),
		ExpiredCount: count,
		Timestamp:    time.Now().UTC(),
	}
	if err := j.eventProducer.Publish(ctx, EventsExchange, RoutingKeySweep, event); err != nil {
		log.Printf("level=warn component=expiry_sweep msg=\"event publish failed\" err=%v", err)
	}
}
