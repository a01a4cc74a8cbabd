// Package maintenance runs the periodic background work of serve mode,
// currently the index embedding backfill.
package maintenance

import (
	"context"
	"fmt"
	"log"

	rcron "github.com/robfig/cron/v3"

	"github.com/stellarlinkco/scout/internal/index"
)

const backfillBatchSize = 50

type Scheduler struct {
	store    *index.Store
	schedule string
	cron     *rcron.Cron
	cancel   context.CancelFunc
}

// NewScheduler prepares an index backfill job on the given cron schedule.
// Descriptors like "@hourly" and standard five-field expressions are both
// accepted.
func NewScheduler(store *index.Store, schedule string) *Scheduler {
	return &Scheduler{store: store, schedule: schedule}
}

func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.cron = rcron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runBackfill(runCtx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("register backfill job (%s): %w", s.schedule, err)
	}

	s.cron.Start()
	log.Printf("[maintenance] backfill scheduled (%s)", s.schedule)
	return nil
}

func (s *Scheduler) runBackfill(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	filled, err := s.store.Backfill(ctx, backfillBatchSize)
	if err != nil {
		log.Printf("[maintenance] backfill failed: %v", err)
		return
	}
	if filled > 0 {
		log.Printf("[maintenance] backfilled %d embeddings", filled)
	}
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Printf("[maintenance] stopped")
}
