package infra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/guard"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaProducer wraps a kafka-go writer for publishing messages.
type KafkaProducer struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	enabled bool
}

// NewKafkaProducer creates a Kafka producer. If brokers is empty or disabled, writes are no-ops.
func NewKafkaProducer(brokers string, enabled bool, logger *slog.Logger) *KafkaProducer {
	if !enabled || brokers == "" {
		logger.Info("kafka producer disabled")
		return &KafkaProducer{enabled: false, logger: logger}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("kafka producer initialized", "brokers", brokers)
	return &KafkaProducer{writer: w, logger: logger, enabled: true}
}

// Enabled reports whether messages are actually written.
func (p *KafkaProducer) Enabled() bool { return p.enabled }

// Publish sends a message to the given topic. No-op if disabled.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if !p.enabled {
		return nil
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// PublishProfile writes a profile snapshot as a ProfileEvent.
func (p *KafkaProducer) PublishProfile(ctx context.Context, topic string, profile domain.PlayerProfile) error {
	ev := domain.ProfileEvent{
		EventID:    uuid.New(),
		Profile:    profile,
		OccurredAt: profile.ComputedAt,
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte("profile"), value)
}

// Close shuts down the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// ProfileSink receives published profiles.
type ProfileSink interface {
	PublishProfile(ctx context.Context, topic string, profile domain.PlayerProfile) error
}

// ProfilePublisher forwards engine profiles to a sink off the engine
// goroutine. Only the newest pending profile is kept. While the breaker is
// open for the topic, profiles are dropped.
type ProfilePublisher struct {
	sink    ProfileSink
	topic   string
	breaker *guard.CircuitBreaker
	logger  *slog.Logger
	pending chan domain.PlayerProfile
}

// NewProfilePublisher creates a publisher for topic. breaker may be nil.
func NewProfilePublisher(sink ProfileSink, topic string, breaker *guard.CircuitBreaker, logger *slog.Logger) *ProfilePublisher {
	return &ProfilePublisher{
		sink:    sink,
		topic:   topic,
		breaker: breaker,
		logger:  logger,
		pending: make(chan domain.PlayerProfile, 1),
	}
}

// Offer queues p, replacing any profile not yet published. It never blocks.
func (pp *ProfilePublisher) Offer(p domain.PlayerProfile) {
	for {
		select {
		case pp.pending <- p:
			return
		default:
		}
		select {
		case <-pp.pending:
		default:
		}
	}
}

// Run publishes queued profiles until ctx is cancelled.
func (pp *ProfilePublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-pp.pending:
			pp.publish(ctx, p)
		}
	}
}

func (pp *ProfilePublisher) publish(ctx context.Context, p domain.PlayerProfile) {
	if pp.breaker != nil {
		if res := pp.breaker.Check(ctx, pp.topic); !res.Allowed {
			pp.logger.Warn("profile publish skipped", "topic", pp.topic, "reason", res.Reason)
			return
		}
	}
	if err := pp.sink.PublishProfile(ctx, pp.topic, p); err != nil {
		if ctx.Err() != nil {
			return
		}
		if pp.breaker != nil {
			pp.breaker.RecordFailure(pp.topic)
		}
		pp.logger.Error("failed to publish profile", "topic", pp.topic, "error", err)
		return
	}
	if pp.breaker != nil {
		pp.breaker.RecordSuccess(pp.topic)
	}
	pp.logger.Debug("profile published", "topic", pp.topic, "level", p.Level)
}

// messageReader is the part of *kafka.Reader the change feed uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ChangeFeed consumes record change events from Kafka and hands each one to
// a sink. A failed read is retried after retryDelay.
type ChangeFeed struct {
	reader     messageReader
	sink       ChangeSink
	logger     *slog.Logger
	retryDelay time.Duration
	enabled    bool
	started    bool
	done       chan struct{}
}

// NewChangeFeed creates a consumer for the given topic and group. If brokers is
// empty or disabled, Start is a no-op.
func NewChangeFeed(brokers, topic, groupID string, enabled bool, sink ChangeSink, logger *slog.Logger) *ChangeFeed {
	f := &ChangeFeed{sink: sink, logger: logger, retryDelay: listenRetryDelay, done: make(chan struct{})}
	if !enabled || brokers == "" {
		logger.Info("kafka change feed disabled")
		return f
	}

	f.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(brokers, ","),
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	f.enabled = true
	logger.Info("kafka change feed initialized", "topic", topic, "group", groupID)
	return f
}

// Start consumes messages in a goroutine until ctx is cancelled.
func (f *ChangeFeed) Start(ctx context.Context) {
	if !f.enabled || f.started {
		return
	}
	f.started = true
	go func() {
		defer close(f.done)
		for {
			msg, err := f.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				f.logger.Error("change feed read failed", "error", err, "retry_in", f.retryDelay)
				if !f.wait(ctx) {
					return
				}
				continue
			}
			if err := f.handle(ctx, msg.Value); err != nil {
				f.logger.Warn("change event dropped",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
	}()
}

// wait sleeps for retryDelay and reports false if ctx ended first.
func (f *ChangeFeed) wait(ctx context.Context) bool {
	timer := time.NewTimer(f.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (f *ChangeFeed) handle(ctx context.Context, value []byte) error {
	ev, err := domain.DecodeChangeEvent(value)
	if err != nil {
		return err
	}
	if err := f.sink.HandleChange(ctx, ev); err != nil {
		return err
	}
	f.logger.Debug("change event dispatched", "source", ev.Source, "op", ev.Op, "record_id", ev.RecordID)
	return nil
}

// Close stops the reader and waits for the consume loop to exit.
func (f *ChangeFeed) Close() error {
	var err error
	if f.reader != nil {
		err = f.reader.Close()
	}
	if f.started {
		<-f.done
	}
	return err
}
