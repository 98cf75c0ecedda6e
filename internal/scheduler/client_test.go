package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestEnqueueFollowupPollCollapsesDuplicates(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + mr.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	ctx := context.Background()
	if err := client.EnqueueFollowupPoll(ctx); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// The second trigger inside the uniqueness window must be a silent no-op.
	if err := client.EnqueueFollowupPoll(ctx); err != nil {
		t.Fatalf("duplicate enqueue not swallowed: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer func() {
		_ = inspector.Close()
	}()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending poll task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskFollowupPoll {
		t.Fatalf("unexpected task type %q", tasks[0].Type)
	}
	if _, err := ParseFollowupPollPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload)); err != nil {
		t.Fatalf("payload does not round-trip: %v", err)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatalf("expected error for missing redis url")
	}
}
