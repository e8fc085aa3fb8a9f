package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskMessageProcess = "messages.process"

type MessageProcessPayload struct {
	MessageID string `json:"messageId"`
	PatientID string `json:"patientId"`
}

func NewMessageProcessTask(payload MessageProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMessageProcess, data), nil
}

func ParseMessageProcessPayload(task *asynq.Task) (MessageProcessPayload, error) {
	var payload MessageProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MessageProcessPayload{}, err
	}
	return payload, nil
}
