package scheduler

import (
	"context"
	"time"

	"textback_backend/platform/config"
	"textback_backend/platform/logger"
)

// PollDispatcher turns wall-clock time into followup.poll tasks. It only
// enqueues; the worker owns the actual poll run.
type PollDispatcher struct {
	client   PollEnqueuer
	interval time.Duration
	log      *logger.Logger
}

func NewPollDispatcher(client PollEnqueuer, cfg config.FollowupConfig, log *logger.Logger) *PollDispatcher {
	interval := cfg.GetPollInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	return &PollDispatcher{
		client:   client,
		interval: interval,
		log:      log,
	}
}

func (d *PollDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := d.client.EnqueueFollowupPoll(ctx); err != nil {
			d.log.Warn("enqueue poll failed", "error", err)
		}
	}
}
