package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventPublisher persists nothing on its own — NOTIFY payloads are
// transient — but always publishes to both the lab-scoped channel and the
// global channel so a dashboard subscribed to "all labs" still sees
// everything (spec §4.3). Publish swallows bus-unavailability errors so a
// producer is never blocked by a degraded notification channel; it logs
// at warn level instead (spec §4.3 "must survive bus unavailability").
type EventPublisher struct {
	pool *pgxpool.Pool
}

// NewEventPublisher wraps pool for NOTIFY sends.
func NewEventPublisher(pool *pgxpool.Pool) *EventPublisher {
	return &EventPublisher{pool: pool}
}

func (p *EventPublisher) notify(ctx context.Context, channel string, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("events: marshal frame: %w", err)
	}
	_, err = p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, string(payload))
	return err
}

// publishBestEffort sends to both the lab channel and the global channel,
// logging (never returning) any notify failure.
func (p *EventPublisher) publishBestEffort(ctx context.Context, labID string, frame Frame) {
	if p == nil || p.pool == nil {
		return
	}
	if err := p.notify(ctx, ChannelForLab(labID), frame); err != nil {
		slog.Warn("events: publish failed", "lab_id", labID, "type", frame.Type, "error", err)
	}
	if err := p.notify(ctx, globalChannel, frame); err != nil {
		slog.Warn("events: global publish failed", "type", frame.Type, "error", err)
	}
}

// PublishNodeState emits a node_state frame.
func (p *EventPublisher) PublishNodeState(ctx context.Context, labID string, data any) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameNodeState, data))
}

// PublishLinkState emits a link_state frame.
func (p *EventPublisher) PublishLinkState(ctx context.Context, labID string, data any) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameLinkState, data))
}

// PublishLabState emits a lab_state frame.
func (p *EventPublisher) PublishLabState(ctx context.Context, labID string, data any) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameLabState, data))
}

// PublishJobProgress emits a job_progress frame.
func (p *EventPublisher) PublishJobProgress(ctx context.Context, labID string, data any) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameJobProgress, data))
}

// PublishInitialState emits an initial_state frame, sent once to a newly
// connected WebSocket client.
func (p *EventPublisher) PublishInitialState(ctx context.Context, labID string, data any) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameInitialState, data))
}

// PublishInitialLinks emits an initial_links frame.
func (p *EventPublisher) PublishInitialLinks(ctx context.Context, labID string, data any) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameInitialLinks, data))
}

// PublishHeartbeat emits a heartbeat frame (spec §5, every 30s of idle).
func (p *EventPublisher) PublishHeartbeat(ctx context.Context, labID string) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameHeartbeat, nil))
}

// PublishError emits an error frame.
func (p *EventPublisher) PublishError(ctx context.Context, labID, message string) {
	p.publishBestEffort(ctx, labID, NewFrame(FrameError, map[string]string{"message": message}))
}
