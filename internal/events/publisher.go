// Package events publishes lifecycle notifications over NATS so downstream
// consumers (cache invalidators, mirrors) can react to imports and
// deletions. Publishing is best-effort and optional: a nil Publisher is a
// no-op, and publish failures are logged, never propagated into the
// pipeline.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// VersionImported is emitted after a successful archive import.
type VersionImported struct {
	Project string    `json:"project"`
	Version string    `json:"version"`
	Pages   int       `json:"pages"`
	Images  int       `json:"images"`
	At      time.Time `json:"at"`
}

// VersionDeleted is emitted after a version row is removed.
type VersionDeleted struct {
	Project string    `json:"project"`
	Version string    `json:"version"`
	At      time.Time `json:"at"`
}

// LatestChanged is emitted when a project's latest-version pointer moves.
// NewLatest is empty when the pointer was cleared.
type LatestChanged struct {
	Project   string    `json:"project"`
	OldLatest string    `json:"old_latest"`
	NewLatest string    `json:"new_latest"`
	At        time.Time `json:"at"`
}

// Publisher publishes lifecycle events to NATS subjects
// {prefix}.version.imported, {prefix}.version.deleted,
// {prefix}.latest.changed.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// NewPublisher connects to NATS at url. prefix defaults to "dochost".
func NewPublisher(url, prefix string) (*Publisher, error) {
	if prefix == "" {
		prefix = "dochost"
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("event publisher connected", "url", url, "prefix", prefix)
	return &Publisher{conn: conn, prefix: prefix}, nil
}

// Close drains and closes the connection. Safe on nil.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// PublishImported emits a version.imported event. Safe on nil.
func (p *Publisher) PublishImported(ev VersionImported) {
	p.publish("version.imported", ev)
}

// PublishDeleted emits a version.deleted event. Safe on nil.
func (p *Publisher) PublishDeleted(ev VersionDeleted) {
	p.publish("version.deleted", ev)
}

// PublishLatestChanged emits a latest.changed event. Safe on nil.
func (p *Publisher) PublishLatestChanged(ev LatestChanged) {
	p.publish("latest.changed", ev)
}

func (p *Publisher) publish(subject string, ev any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal lifecycle event", "subject", subject, "error", err)
		return
	}
	full := p.prefix + "." + subject
	if err := p.conn.Publish(full, data); err != nil {
		slog.Warn("publish lifecycle event", "subject", full, "error", err)
	}
}
