// Package events publishes reload outcomes to NATS and turns NATS requests
// into reloads.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"flight_explorer/internal/etl"
	"flight_explorer/internal/logging"
)

// Reload outcome values of Event.Status.
const (
	StatusCommitted = "committed"
	StatusAborted   = "aborted"
)

const flushTimeout = 5 * time.Second

// Event is the JSON payload published after every reload.
type Event struct {
	RunID      string         `json:"run_id"`
	Status     string         `json:"status"`
	Counts     map[string]int `json:"counts"`
	Error      string         `json:"error"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// FromReport builds the event for a finished reload.
func FromReport(rep etl.Report, runErr error) Event {
	ev := Event{
		RunID:      rep.RunID.String(),
		Status:     StatusAborted,
		Counts:     rep.Counts,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
	}
	if rep.Committed() {
		ev.Status = StatusCommitted
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	if ev.Counts == nil {
		ev.Counts = map[string]int{}
	}
	return ev
}

// Publisher delivers reload events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event. Pipelines use it when NATS is not configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Connect opens a NATS connection that keeps reconnecting.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// NATSPublisher publishes events as JSON on one subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher creates a publisher on nc.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	timeout := flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := p.nc.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	return nil
}

// Hook returns a reload hook that publishes every outcome through p.
func Hook(p Publisher) etl.Hook {
	return func(ctx context.Context, rep etl.Report, runErr error) error {
		return p.Publish(ctx, FromReport(rep, runErr))
	}
}

// ReloadFunc runs one reload.
type ReloadFunc func(ctx context.Context) (etl.Report, error)

// Handle runs reload for one trigger message. When the message carries a
// reply subject the outcome event is sent back to it.
func Handle(ctx context.Context, msg *nats.Msg, reload ReloadFunc, log *zap.Logger) {
	log.Info("reload requested", zap.String("subject", msg.Subject))

	rep, err := reload(ctx)
	if err != nil {
		log.Error("requested reload failed", zap.Error(err))
	}

	if msg.Reply == "" {
		return
	}
	data, mErr := json.Marshal(FromReport(rep, err))
	if mErr != nil {
		log.Error("encode reply", zap.Error(mErr))
		return
	}
	if rErr := msg.Respond(data); rErr != nil {
		log.Warn("reply failed", zap.Error(rErr))
	}
}

// Listen subscribes to subject and runs reload for every message until ctx
// is done. nats.go delivers the messages of one subscription sequentially,
// so reloads never overlap.
func Listen(ctx context.Context, nc *nats.Conn, subject string, reload ReloadFunc, log *zap.Logger) error {
	log = logging.OrNop(log)

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		Handle(ctx, msg, reload, log)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	log.Info("listening for reload requests", zap.String("subject", subject))

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain %s: %w", subject, err)
	}
	return nil
}
