package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// EditEventType identifies a profile edit lifecycle event.
type EditEventType string

const (
	EditEventSessionOpened    EditEventType = "session_opened"
	EditEventSessionClosed    EditEventType = "session_closed"
	EditEventGatePassed       EditEventType = "gate_passed"
	EditEventGateBypassed     EditEventType = "gate_bypassed"
	EditEventOTCSent          EditEventType = "otc_sent"
	EditEventOTCVerified      EditEventType = "otc_verified"
	EditEventProfileCommitted EditEventType = "profile_committed"
)

// EditEvent is a best-effort, append-only record intended for external sinks.
type EditEvent struct {
	OccurredAt time.Time
	LoginID    string
	SessionID  string
	Event      EditEventType
	Channel    *string
	// Fields lists the profile fields a commit changed.
	Fields []string
}

// EventLogger records edit events. Implementations should not block the
// caller for long; failures are logged and dropped.
type EventLogger interface {
	LogEditEvent(ctx context.Context, e EditEvent) error
}

// LogrusEventLogger writes edit events as structured log lines.
type LogrusEventLogger struct {
	Log logrus.FieldLogger
}

func (l LogrusEventLogger) LogEditEvent(ctx context.Context, e EditEvent) error {
	log := l.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithFields(logrus.Fields{
		"event":      string(e.Event),
		"login_id":   e.LoginID,
		"session_id": e.SessionID,
	})
	if e.Channel != nil {
		entry = entry.WithField("channel", *e.Channel)
	}
	if len(e.Fields) > 0 {
		entry = entry.WithField("fields", e.Fields)
	}
	entry.Info("profile_edit_event")
	return nil
}

func emitEvent(ctx context.Context, sink EventLogger, log logrus.FieldLogger, e EditEvent) {
	if sink == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := sink.LogEditEvent(ctx, e); err != nil && log != nil {
		log.WithError(err).WithField("event", string(e.Event)).Warn("edit_event_log_failed")
	}
}
