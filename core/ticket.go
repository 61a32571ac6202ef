package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

const gateTicketPrefix = "profilekit:gate:"

// DefaultGateTicketTTL bounds how long a passed password gate stays valid.
const DefaultGateTicketTTL = 10 * time.Minute

type gateTicket struct {
	LoginID  string    `json:"login_id"`
	OwnerID  string    `json:"owner_id"`
	IssuedAt time.Time `json:"issued_at"`
}

func newTicketValue() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// issueGateTicket records a passed gate for loginID and returns the opaque
// ticket the caller presents when opening an edit session.
func (s *Service) issueGateTicket(ctx context.Context, ownerID, loginID string) (string, error) {
	t, err := newTicketValue()
	if err != nil {
		return "", fmt.Errorf("gate ticket: %w", err)
	}
	rec := gateTicket{LoginID: loginID, OwnerID: ownerID, IssuedAt: s.clock.Now().UTC()}
	if err := s.ephemSetJSON(ctx, gateTicketPrefix+t, rec, s.opts.GateTicketTTL); err != nil {
		return "", fmt.Errorf("gate ticket: %w", err)
	}
	return t, nil
}

// consumeGateTicket redeems a ticket once. It fails with ErrGateRequired
// unless the ticket exists and belongs to the same owner and member.
func (s *Service) consumeGateTicket(ctx context.Context, ticket, ownerID, loginID string) error {
	if ticket == "" {
		return ErrGateRequired
	}
	var rec gateTicket
	ok, err := s.ephemTakeJSON(ctx, gateTicketPrefix+ticket, &rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateRequired, err)
	}
	if !ok {
		return ErrGateRequired
	}
	if rec.OwnerID != ownerID || rec.LoginID != loginID {
		return ErrGateRequired
	}
	return nil
}
