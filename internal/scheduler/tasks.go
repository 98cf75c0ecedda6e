package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskFollowupPoll = "followup.poll"

type FollowupPollPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewFollowupPollTask(payload FollowupPollPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowupPoll, data), nil
}

func ParseFollowupPollPayload(task *asynq.Task) (FollowupPollPayload, error) {
	var payload FollowupPollPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowupPollPayload{}, err
	}
	return payload, nil
}
