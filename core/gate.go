package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// GateBackend is what the password gate needs from the member backend.
type GateBackend interface {
	MemberReader
	PasswordChecker
}

// GateResult is the outcome of passing (or skipping) the password gate.
type GateResult struct {
	Baseline MemberBaseline
	// Bypassed is set for social accounts, which have no local password.
	Bypassed bool
}

// PasswordRejectedError carries the backend's explanation verbatim.
type PasswordRejectedError struct {
	Text string
}

func (e *PasswordRejectedError) Error() string {
	return "password_rejected: " + e.Text
}

func (e *PasswordRejectedError) Unwrap() error { return ErrPasswordRejected }

// PasswordGate is the checkpoint a local account passes before it may open
// an edit session.
type PasswordGate struct {
	backend GateBackend
	log     logrus.FieldLogger
}

func NewPasswordGate(backend GateBackend, log logrus.FieldLogger) *PasswordGate {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PasswordGate{backend: backend, log: log}
}

// Probe decides whether the password prompt can be skipped. The member
// record is checked for a social provider first; failing that, an empty
// password is offered and a SOCIAL_OK reply also bypasses. Probe failures
// are not fatal: the caller shows the prompt.
func (g *PasswordGate) Probe(ctx context.Context) GateResult {
	m, err := g.backend.FetchMember(ctx)
	if err == nil && m.IsSocial() {
		return GateResult{Baseline: m, Bypassed: true}
	}
	if err != nil {
		g.log.WithError(err).Debug("gate_probe_member_failed")
	}
	chk, cerr := g.backend.CheckPassword(ctx, "")
	if cerr != nil {
		g.log.WithError(cerr).Debug("gate_probe_check_failed")
		return GateResult{Baseline: m}
	}
	return GateResult{Baseline: m, Bypassed: chk.SocialBypass}
}

// Confirm checks password with the backend and, on success, loads the
// baseline the edit session will diff against.
func (g *PasswordGate) Confirm(ctx context.Context, password string) (GateResult, error) {
	chk, err := g.backend.CheckPassword(ctx, password)
	if err != nil {
		return GateResult{}, err
	}
	if !chk.SocialBypass && !chk.OK {
		return GateResult{}, &PasswordRejectedError{Text: chk.Text}
	}
	m, err := g.backend.FetchMember(ctx)
	if err != nil {
		return GateResult{}, fmt.Errorf("%w: %v", ErrMemberUnavailable, err)
	}
	return GateResult{Baseline: m, Bypassed: chk.SocialBypass || m.IsSocial()}, nil
}
