package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c stubSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c stubSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c stubSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{}); err == nil {
		t.Fatal("NewClient accepted an empty redis url")
	}
}

func TestEnqueueMessageProcessing(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(stubSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "sabcare"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	messageID := uuid.New()
	patientID := uuid.New()
	if err := client.EnqueueMessageProcessing(context.Background(), messageID, patientID); err != nil {
		t.Fatalf("EnqueueMessageProcessing: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("sabcare")
	if err != nil {
		t.Fatalf("list pending tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskMessageProcess {
		t.Errorf("task type = %s, want %s", tasks[0].Type, TaskMessageProcess)
	}

	payload, err := ParseMessageProcessPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.MessageID != messageID.String() || payload.PatientID != patientID.String() {
		t.Errorf("payload = %+v, want ids %s/%s", payload, messageID, patientID)
	}
}
