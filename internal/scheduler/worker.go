package scheduler

import (
	"context"
	"fmt"

	"textback_backend/internal/followup"
	"textback_backend/platform/config"
	"textback_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	poller *followup.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, poller *followup.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		poller: poller,
		log:    log,
	}

	mux.HandleFunc(TaskFollowupPoll, w.handleFollowupPoll)

	return w, nil
}

func (w *Worker) handleFollowupPoll(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowupPollPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("poll run starting", "requested_at", payload.RequestedAt)
	return w.poller.PollAll(ctx)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
