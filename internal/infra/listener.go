package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listenRetryDelay = 2 * time.Second

// ChangeListener decodes Postgres NOTIFY payloads on one channel and hands
// them to a sink. It covers writes made outside this process, such as
// migrations or manual SQL.
type ChangeListener struct {
	pool       *pgxpool.Pool
	channel    string
	sink       ChangeSink
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewChangeListener creates a listener for channel.
func NewChangeListener(pool *pgxpool.Pool, channel string, sink ChangeSink, logger *slog.Logger) *ChangeListener {
	return &ChangeListener{
		pool:       pool,
		channel:    channel,
		sink:       sink,
		logger:     logger,
		retryDelay: listenRetryDelay,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection loss.
// After every reconnect a resync event is sent for each source, since
// changes made while disconnected were missed.
func (l *ChangeListener) Run(ctx context.Context) {
	first := true
	for {
		err := l.listen(ctx, !first)
		if ctx.Err() != nil {
			return
		}
		first = false
		l.logger.Warn("change listener disconnected", "channel", l.channel, "error", err, "retry_in", l.retryDelay)

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *ChangeListener) listen(ctx context.Context, resync bool) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("change listener started", "channel", l.channel)

	if resync {
		l.resync(ctx)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := l.handle(ctx, n.Payload); err != nil {
			l.logger.Warn("change notification dropped", "channel", n.Channel, "error", err)
		}
	}
}

func (l *ChangeListener) handle(ctx context.Context, payload string) error {
	ev, err := domain.DecodeChangeEvent([]byte(payload))
	if err != nil {
		return err
	}
	if err := l.sink.HandleChange(ctx, ev); err != nil {
		return err
	}
	l.logger.Debug("change notification handled", "source", ev.Source, "op", ev.Op, "record_id", ev.RecordID)
	return nil
}

func (l *ChangeListener) resync(ctx context.Context) {
	now := time.Now().UTC()
	for _, kind := range domain.SourceKinds {
		ev := domain.ChangeEvent{Source: kind, Op: domain.ChangeResync, OccurredAt: now}
		if err := l.sink.HandleChange(ctx, ev); err != nil {
			l.logger.Warn("resync failed", "source", kind, "error", err)
		}
	}
}
