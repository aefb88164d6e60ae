package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/gateway"
	"github.com/Patricklolilol/ffmpeg-service/pkg/kafka"
)

// jobEvent is the wire payload published for each terminal job outcome.
type jobEvent struct {
	Event      string    `json:"event"`
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error,omitempty"`
	Artifacts  []string  `json:"artifacts,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaJobReporter publishes terminal job events to the job-events topic.
type KafkaJobReporter struct {
	client *kafka.Client
	topic  string
}

// NewKafkaJobReporter builds the reporter over the shared kafka client.
func NewKafkaJobReporter(client *kafka.Client, topic string) gateway.JobEventReporter {
	return &KafkaJobReporter{client: client, topic: topic}
}

func (r *KafkaJobReporter) ReportCompleted(ctx context.Context, job *entity.Job) error {
	return r.publish(ctx, "job.completed", job)
}

func (r *KafkaJobReporter) ReportFailed(ctx context.Context, job *entity.Job) error {
	return r.publish(ctx, "job.failed", job)
}

func (r *KafkaJobReporter) publish(ctx context.Context, event string, job *entity.Job) error {
	names := make([]string, 0, len(job.Artifacts))
	for _, a := range job.Artifacts {
		names = append(names, a.Name)
	}

	payload, err := json.Marshal(jobEvent{
		Event:      event,
		JobID:      job.ID,
		Status:     job.Status.String(),
		Stage:      job.Stage,
		Error:      job.Error,
		Artifacts:  names,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	return r.client.Produce(ctx, r.topic, []byte(job.ID), payload)
}
