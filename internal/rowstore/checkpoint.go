package rowstore

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/tantalum-db/lstore/internal/buffer"
)

var checkpointLog = log.New(log.Writer(), "lstore/checkpoint: ", log.LstdFlags)

// CheckpointScheduler periodically flushes every dirty frame in a
// bufferpool to disk on a cron schedule, independent of an explicit
// Close. Grounded on the teacher's Scheduler
// (internal/storage/scheduler.go): cron.New(cron.WithSeconds()),
// AddFunc, and an explicit Start/Stop lifecycle.
type CheckpointScheduler struct {
	cron *cron.Cron
	pool *buffer.BufferPool
}

// NewCheckpointScheduler builds a scheduler that flushes pool on the
// given cron spec (standard 5-field cron plus a seconds field, e.g.
// "*/30 * * * * *" for every 30 seconds).
func NewCheckpointScheduler(pool *buffer.BufferPool, spec string) (*CheckpointScheduler, error) {
	c := cron.New(cron.WithSeconds())
	s := &CheckpointScheduler{cron: c, pool: pool}
	_, err := c.AddFunc(spec, s.runCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("rowstore: checkpoint scheduler: %w", err)
	}
	return s, nil
}

func (s *CheckpointScheduler) runCheckpoint() {
	if err := s.pool.FlushAll(nil); err != nil {
		checkpointLog.Printf("checkpoint flush failed: %v", err)
		return
	}
	checkpointLog.Printf("checkpoint flush complete")
}

// Start begins the cron schedule.
func (s *CheckpointScheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (s *CheckpointScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
