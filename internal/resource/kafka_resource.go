package resource

import (
	"sync"

	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/kafka"
	"github.com/Patricklolilol/ffmpeg-service/pkg/manager"
)

var (
	kafkaResourceOnce sync.Once
	kafkaSingleton    *KafkaResource
)

// KafkaResource manages the shared kafka client for job lifecycle events.
type KafkaResource struct {
	client *kafka.Client
}

// DefaultKafkaResource returns the global Kafka resource instance.
func DefaultKafkaResource() *KafkaResource {
	kafkaResourceOnce.Do(func() {
		kafkaSingleton = &KafkaResource{}
	})
	return kafkaSingleton
}

// MustOpen prepares the kafka client; skipped when the event stream is disabled.
func (r *KafkaResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before Kafka resource")
	}
	if !cfg.Kafka.Enabled {
		return
	}
	client := kafka.DefaultClient()
	client.MustOpen()
	r.client = client
}

// Close flushes and closes topic writers.
func (r *KafkaResource) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// Client returns the kafka client, nil when the event stream is disabled.
func (r *KafkaResource) Client() *kafka.Client {
	return r.client
}

// KafkaResourcePlugin wires the resource into the manager.
type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string {
	return "kafka"
}

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultKafkaResource()
}
