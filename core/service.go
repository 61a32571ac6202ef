package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	memorystore "github.com/open-rails/profilekit/storage/memory"
	"github.com/sirupsen/logrus"
)

// Options configures gate tickets and session lifetimes.
type Options struct {
	GateTicketTTL  time.Duration
	SessionIdleTTL time.Duration
}

// Service is the profile edit service used by HTTP adapters. It runs the
// password gate, hands out gate tickets and keeps the open edit sessions.
type Service struct {
	opts           Options
	clock          clockwork.Clock
	log            logrus.FieldLogger
	events         EventLogger
	ephemeralStore EphemeralStore
	ephemeralMode  EphemeralMode
	ownStore       bool // built-in memory KV, rebuilt by WithClock
	registry       *Registry
}

func NewService(opts Options) *Service {
	if opts.GateTicketTTL <= 0 {
		opts.GateTicketTTL = DefaultGateTicketTTL
	}
	if opts.SessionIdleTTL <= 0 {
		opts.SessionIdleTTL = DefaultSessionIdleTTL
	}
	clock := clockwork.NewRealClock()
	return &Service{
		opts:           opts,
		clock:          clock,
		log:            logrus.StandardLogger(),
		ephemeralStore: memorystore.NewKVWithClock(clock),
		ephemeralMode:  EphemeralMemory,
		ownStore:       true,
		registry:       NewRegistry(clock),
	}
}

func (s *Service) WithLogger(l logrus.FieldLogger) *Service {
	if l != nil {
		s.log = l
	}
	return s
}

// WithClock swaps the clock used by timers, tickets and the registry. Call it
// before any session is opened.
func (s *Service) WithClock(c clockwork.Clock) *Service {
	if c != nil {
		s.clock = c
		s.registry = NewRegistry(c)
		if s.ownStore {
			s.ephemeralStore = memorystore.NewKVWithClock(c)
		}
	}
	return s
}

func (s *Service) WithEventLogger(l EventLogger) *Service { s.events = l; return s }

func (s *Service) Options() Options    { return s.opts }
func (s *Service) Registry() *Registry { return s.registry }

// Profile loads the member behind backend for the read-only profile page.
func (s *Service) Profile(ctx context.Context, backend MemberReader) (ProfileView, error) {
	m, err := backend.FetchMember(ctx)
	if err != nil {
		return ProfileView{}, fmt.Errorf("%w: %v", ErrMemberUnavailable, err)
	}
	return NewProfileView(m), nil
}

// Probe reports whether the password prompt can be skipped for the member
// behind backend.
func (s *Service) Probe(ctx context.Context, backend GateBackend) GateResult {
	return NewPasswordGate(backend, s.log).Probe(ctx)
}

// PassGate checks password and, for a local account, returns a single-use
// ticket to open an edit session with. Social accounts get no ticket. An
// empty password only succeeds when the probe bypasses the gate.
func (s *Service) PassGate(ctx context.Context, backend GateBackend, ownerID, password string) (GateResult, string, error) {
	gate := NewPasswordGate(backend, s.log)
	var res GateResult
	if password == "" {
		res = gate.Probe(ctx)
		if !res.Bypassed {
			return GateResult{}, "", ErrInvalidFormat
		}
	} else {
		var err error
		if res, err = gate.Confirm(ctx, password); err != nil {
			return GateResult{}, "", err
		}
	}
	ev := EditEvent{OccurredAt: s.clock.Now().UTC(), LoginID: res.Baseline.LoginID}
	if res.Bypassed {
		ev.Event = EditEventGateBypassed
		emitEvent(ctx, s.events, s.log, ev)
		return res, "", nil
	}
	ticket, err := s.issueGateTicket(ctx, ownerID, res.Baseline.LoginID)
	if err != nil {
		s.log.WithError(err).Error("gate_ticket_issue_failed")
		return GateResult{}, "", err
	}
	ev.Event = EditEventGatePassed
	emitEvent(ctx, s.events, s.log, ev)
	return res, ticket, nil
}

// OpenSession loads the member baseline and opens an edit session owned by
// ownerID. Local accounts must present a ticket from PassGate for the same
// member.
func (s *Service) OpenSession(ctx context.Context, backend MemberBackend, ownerID, ticket string) (*EditSession, error) {
	m, err := backend.FetchMember(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemberUnavailable, err)
	}
	if !m.IsSocial() {
		if err := s.consumeGateTicket(ctx, ticket, ownerID, m.LoginID); err != nil {
			return nil, err
		}
	}
	sess := NewEditSession(m, backend, SessionOptions{
		Clock:  s.clock,
		Log:    s.log.WithField("owner_id", ownerID),
		Events: s.events,
	})
	s.registry.Add(ownerID, sess)
	emitEvent(ctx, s.events, s.log, EditEvent{
		OccurredAt: s.clock.Now().UTC(),
		LoginID:    m.LoginID,
		SessionID:  sess.ID(),
		Event:      EditEventSessionOpened,
	})
	return sess, nil
}

// Session looks up an open session of ownerID.
func (s *Service) Session(ownerID, id string) (*EditSession, error) {
	return s.registry.Get(ownerID, id)
}

func (s *Service) CloseSession(ownerID, id string) error {
	return s.registry.Remove(ownerID, id)
}

// SweepIdle closes sessions idle longer than the configured TTL.
func (s *Service) SweepIdle() int {
	n := s.registry.Sweep(s.opts.SessionIdleTTL)
	if n > 0 {
		s.log.WithField("count", n).Info("idle_sessions_swept")
	}
	return n
}

// Shutdown closes every open session.
func (s *Service) Shutdown() { s.registry.CloseAll() }
