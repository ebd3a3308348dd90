// Package notify carries committed auction events out of the process. The
// Redis Stream is an outbound integration point for other systems; delivery
// is fire-and-forget and the durable notification rows stay authoritative.
package notify

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	redisAdapter "capdraft/adapters/redis"
	"capdraft/engine"
)

// StreamSink publishes engine events to a Redis Stream.
type StreamSink struct {
	producer *redisAdapter.Producer[engine.Event]
}

func NewStreamSink(client *redis.Client, stream string, logger *slog.Logger) (*StreamSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	producer, err := redisAdapter.NewProducer[engine.Event](
		client,
		stream,
		redisAdapter.WithProducerLogger[engine.Event](logger),
	)
	if err != nil {
		return nil, err
	}
	return &StreamSink{producer: producer}, nil
}

func (s *StreamSink) Start() {
	s.producer.Start()
}

func (s *StreamSink) Publish(event engine.Event) error {
	return s.producer.Publish(event)
}

func (s *StreamSink) Close() {
	s.producer.Close()
}

// NopSink discards every event. Used when no Redis is configured and in
// tests.
type NopSink struct{}

func (NopSink) Publish(engine.Event) error { return nil }
