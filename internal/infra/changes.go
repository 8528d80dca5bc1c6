package infra

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/attaboy/lifestats/internal/domain"
)

// Dispatcher routes a change notice to the listeners of one source.
type Dispatcher interface {
	Dispatch(kind domain.SourceKind) bool
}

// ChangeSink receives decoded record change events.
type ChangeSink interface {
	HandleChange(ctx context.Context, ev domain.ChangeEvent) error
}

// DispatchSink turns change events into change notices for local sources.
type DispatchSink struct {
	Dispatcher Dispatcher
}

func (s DispatchSink) HandleChange(_ context.Context, ev domain.ChangeEvent) error {
	if !s.Dispatcher.Dispatch(ev.Source) {
		return domain.ErrValidation("no listener for source " + string(ev.Source))
	}
	return nil
}

// ChangeRelay forwards change events to a Kafka topic, keyed by source so
// events for one source stay ordered.
type ChangeRelay struct {
	producer *KafkaProducer
	topic    string
}

// NewChangeRelay creates a relay publishing to topic.
func NewChangeRelay(producer *KafkaProducer, topic string) *ChangeRelay {
	return &ChangeRelay{producer: producer, topic: topic}
}

func (r *ChangeRelay) HandleChange(ctx context.Context, ev domain.ChangeEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := r.producer.Publish(ctx, r.topic, []byte(ev.Source), value); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}
