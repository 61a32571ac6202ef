package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-rails/profilekit/core"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS profilekit;
CREATE TABLE IF NOT EXISTS profilekit.edit_events (
	id          bigserial PRIMARY KEY,
	occurred_at timestamptz NOT NULL,
	login_id    text NOT NULL,
	session_id  text,
	event       text NOT NULL,
	channel     text,
	fields      text[]
);
CREATE INDEX IF NOT EXISTS edit_events_login_idx ON profilekit.edit_events (login_id, occurred_at DESC);
`

// EventLog appends profile edit events to Postgres.
type EventLog struct {
	pg      *pgxpool.Pool
	timeout time.Duration
}

func NewEventLog(pg *pgxpool.Pool) *EventLog {
	return &EventLog{pg: pg, timeout: 2 * time.Second}
}

// EnsureSchema creates the events table when missing.
func (l *EventLog) EnsureSchema(ctx context.Context) error {
	_, err := l.pg.Exec(ctx, schemaSQL)
	return err
}

func (l *EventLog) LogEditEvent(ctx context.Context, e core.EditEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	_, err := l.pg.Exec(ctx, `
		INSERT INTO profilekit.edit_events (occurred_at, login_id, session_id, event, channel, fields)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
	`, eventArgs(e)...)
	return err
}

func eventArgs(e core.EditEvent) []any {
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	var fields []string
	if len(e.Fields) > 0 {
		fields = e.Fields
	}
	return []any{at.UTC(), e.LoginID, e.SessionID, string(e.Event), e.Channel, fields}
}
