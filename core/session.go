package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// SessionBackend is the part of the member backend an open session calls.
type SessionBackend interface {
	ProfileUpdater
	EmailVerifier
	PhoneVerifier
}

// SessionOptions tunes a new EditSession. Zero values pick defaults.
type SessionOptions struct {
	ID     string
	Clock  clockwork.Clock
	Log    logrus.FieldLogger
	Events EventLogger
}

// EditSession owns one member's profile edit: the baseline captured at open,
// the typed draft, and the email and phone verification channels. It decides
// whether the draft may be committed and builds the update payload.
//
// All methods are safe for concurrent use. No lock is held across a call to
// the member backend.
type EditSession struct {
	id       string
	baseline MemberBaseline
	kind     AccountKind
	backend  SessionBackend
	email    *Channel
	phone    *Channel
	log      logrus.FieldLogger
	events   EventLogger

	mu         sync.Mutex
	draft      EditDraft
	submitting bool
	closed     bool
	committed  bool
}

// NewEditSession opens a session on baseline. The draft starts as a copy of
// the baseline's editable fields.
func NewEditSession(baseline MemberBaseline, backend SessionBackend, opts SessionOptions) *EditSession {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"session_id": id, "login_id": baseline.LoginID})
	return &EditSession{
		id:       id,
		baseline: baseline,
		kind:     baseline.AccountKind(),
		backend:  backend,
		email:    NewEmailChannel(backend, opts.Clock, log),
		phone:    NewPhoneChannel(backend, opts.Clock, log),
		log:      log,
		events:   opts.Events,
		draft:    draftFromBaseline(baseline),
	}
}

func (s *EditSession) ID() string                 { return s.id }
func (s *EditSession) Baseline() MemberBaseline   { return s.baseline }
func (s *EditSession) AccountKind() AccountKind   { return s.kind }
func (s *EditSession) EmailChannel() *Channel     { return s.email }
func (s *EditSession) PhoneChannel() *Channel     { return s.phone }
func (s *EditSession) Channel(k ChannelKind) *Channel {
	if k == ChannelPhone {
		return s.phone
	}
	return s.email
}

// Draft returns a copy of the working draft.
func (s *EditSession) Draft() EditDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *EditSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// DraftUpdate carries a partial edit; nil fields are left untouched.
type DraftUpdate struct {
	Name               *string `json:"name,omitempty"`
	Nickname           *string `json:"nickname,omitempty"`
	Email              *string `json:"email,omitempty"`
	Cellphone          *string `json:"cellphone,omitempty"`
	Address            *string `json:"address,omitempty"`
	PasswordChange     *bool   `json:"passwordChange,omitempty"`
	NewPassword        *string `json:"newPassword,omitempty"`
	NewPasswordConfirm *string `json:"newPasswordConfirm,omitempty"`
}

// Apply performs every edit in u as one mutation. Email and phone edits reset
// their channel in the same step, so a verification can never outlive the
// value it was made for.
func (s *EditSession) Apply(u DraftUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if u.PasswordChange != nil && *u.PasswordChange && s.kind == AccountSocial {
		return ErrSocialNoPassword
	}
	if s.kind == AccountSocial && (u.NewPassword != nil || u.NewPasswordConfirm != nil) {
		return ErrSocialNoPassword
	}

	if u.Name != nil {
		s.draft.Name = *u.Name
	}
	if u.Nickname != nil {
		s.draft.Nickname = *u.Nickname
	}
	if u.Address != nil {
		s.draft.Address = *u.Address
	}
	if u.Email != nil {
		s.draft.Email = *u.Email
		s.email.Observe(s.draft.Email)
	}
	if u.Cellphone != nil {
		s.draft.Cellphone = *u.Cellphone
		s.phone.Observe(s.draft.Cellphone)
	}
	if u.PasswordChange != nil {
		s.draft.PasswordChange = *u.PasswordChange
		if !s.draft.PasswordChange {
			s.draft.NewPassword, s.draft.NewPasswordConfirm = "", ""
		}
	}
	if u.NewPassword != nil {
		s.draft.NewPassword = *u.NewPassword
	}
	if u.NewPasswordConfirm != nil {
		s.draft.NewPasswordConfirm = *u.NewPasswordConfirm
	}
	return nil
}

func (s *EditSession) SetName(v string) error     { return s.Apply(DraftUpdate{Name: &v}) }
func (s *EditSession) SetNickname(v string) error { return s.Apply(DraftUpdate{Nickname: &v}) }
func (s *EditSession) SetEmail(v string) error    { return s.Apply(DraftUpdate{Email: &v}) }
func (s *EditSession) SetCellphone(v string) error {
	return s.Apply(DraftUpdate{Cellphone: &v})
}
func (s *EditSession) SetAddress(v string) error { return s.Apply(DraftUpdate{Address: &v}) }

// SetPasswordChange toggles the password-change opt-in. Turning it off
// clears both password fields.
func (s *EditSession) SetPasswordChange(on bool) error {
	return s.Apply(DraftUpdate{PasswordChange: &on})
}

func (s *EditSession) SetNewPassword(password, confirm string) error {
	return s.Apply(DraftUpdate{NewPassword: &password, NewPasswordConfirm: &confirm})
}

// SetPhoto replaces the profile photo; nil keeps the current one.
func (s *EditSession) SetPhoto(p *PhotoFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.draft.Photo = p
	return nil
}

func (s *EditSession) mutableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrRequestInFlight
	}
	return nil
}

// Requirement evaluates the reauth policy against the current draft.
func (s *EditSession) Requirement() ReauthRequirement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requirementLocked()
}

func (s *EditSession) requirementLocked() ReauthRequirement {
	return EvaluateReauth(s.draft, s.baseline, s.kind,
		effectiveStatus(s.email, s.draft.Email),
		effectiveStatus(s.phone, s.draft.Cellphone))
}

// effectiveStatus only reports verified when the verification belongs to the
// value currently in the draft.
func effectiveStatus(c *Channel, value string) ChannelStatus {
	st := c.State().Status
	if st == StatusVerified && !c.VerifiedFor(value) {
		return StatusIdle
	}
	return st
}

// CheckSubmit runs the local commit gates without touching the network.
func (s *EditSession) CheckSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	return s.checkLocked(s.requirementLocked())
}

func (s *EditSession) checkLocked(req ReauthRequirement) error {
	if req.PasswordConfirmationRequired {
		if err := CheckPasswordPolicy(s.draft.NewPassword, s.draft.NewPasswordConfirm); err != nil {
			return err
		}
	}
	if ch := req.Unresolved(); len(ch) > 0 {
		return &ReauthRequiredError{Channels: ch}
	}
	return nil
}

func draftEmail(d EditDraft) string { return d.Email }
func draftPhone(d EditDraft) string { return d.Cellphone }

// SendEmailCode sends a one-time code to the draft email.
func (s *EditSession) SendEmailCode(ctx context.Context) (ChannelState, error) {
	return s.send(ctx, s.email, draftEmail)
}

// ConfirmEmailCode checks a code against the pending email transaction.
func (s *EditSession) ConfirmEmailCode(ctx context.Context, code string) (ChannelState, error) {
	return s.confirm(ctx, s.email, code)
}

// SendPhoneCode sends a one-time code to the draft cellphone.
func (s *EditSession) SendPhoneCode(ctx context.Context) (ChannelState, error) {
	return s.send(ctx, s.phone, draftPhone)
}

// ConfirmPhoneCode checks a code against the pending phone transaction.
func (s *EditSession) ConfirmPhoneCode(ctx context.Context, code string) (ChannelState, error) {
	return s.confirm(ctx, s.phone, code)
}

func (s *EditSession) send(ctx context.Context, ch *Channel, field func(EditDraft) string) (ChannelState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ch.State(), ErrSessionClosed
	}
	value := field(s.draft)
	s.mu.Unlock()

	st, err := ch.Send(ctx, value)
	if serr := s.observeDraft(ch, value, field); serr != nil {
		return ch.State(), serr
	}
	if err == nil {
		s.emit(ctx, EditEventOTCSent, ch.Kind())
	}
	return st, err
}

// observeDraft re-binds ch to the live draft after a send. The draft may have
// been edited between reading value and the channel binding it; in that case
// the channel is reset and the send reported as superseded.
func (s *EditSession) observeDraft(ch *Channel, value string, field func(EditDraft) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := field(s.draft)
	ch.Observe(cur)
	if ch.drv.normalize(cur) != ch.drv.normalize(value) {
		return channelErr(ch.Kind(), ErrSuperseded, "")
	}
	return nil
}

func (s *EditSession) confirm(ctx context.Context, ch *Channel, code string) (ChannelState, error) {
	if s.Closed() {
		return ch.State(), ErrSessionClosed
	}
	st, err := ch.Confirm(ctx, code)
	if err == nil {
		s.emit(ctx, EditEventOTCVerified, ch.Kind())
	}
	return st, err
}

// Submit commits the draft. Local gates run first and block without any
// network call; only a fully resolved draft reaches the profile updater. On
// success the session is closed. On failure it stays open with the draft
// intact so the member can retry.
func (s *EditSession) Submit(ctx context.Context) (UpdatePayload, error) {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return UpdatePayload{}, err
	}
	req := s.requirementLocked()
	if err := s.checkLocked(req); err != nil {
		s.mu.Unlock()
		return UpdatePayload{}, err
	}
	payload := s.payloadLocked(req)
	s.submitting = true
	s.mu.Unlock()

	err := s.backend.UpdateProfile(ctx, payload)

	s.mu.Lock()
	s.submitting = false
	if s.closed {
		s.mu.Unlock()
		return UpdatePayload{}, ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Warn("profile_commit_failed")
		return UpdatePayload{}, err
	}
	s.committed = true
	s.mu.Unlock()

	emitEvent(ctx, s.events, s.log, EditEvent{
		LoginID:   s.baseline.LoginID,
		SessionID: s.id,
		Event:     EditEventProfileCommitted,
		Fields:    payload.ChangedFields(),
	})
	s.Close()
	return payload, nil
}

// Payload builds the update payload for the current draft without checking
// any gate.
func (s *EditSession) Payload() UpdatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked(s.requirementLocked())
}

func (s *EditSession) payloadLocked(req ReauthRequirement) UpdatePayload {
	d, b := s.draft, s.baseline
	p := UpdatePayload{LoginID: b.LoginID}
	if d.Name != b.Name {
		p.Name = strPtr(d.Name)
	}
	if d.Nickname != b.Nickname {
		p.Nickname = strPtr(d.Nickname)
	}
	if d.Address != b.Address {
		p.Address = strPtr(d.Address)
	}
	if EmailChanged(d, b) {
		p.Email = strPtr(NormalizeEmail(d.Email))
	}
	if PhoneChanged(d, b) {
		p.Cellphone = strPtr(NormalizePhone(d.Cellphone))
	}
	if req.PasswordConfirmationRequired {
		p.Password = strPtr(d.NewPassword)
	}
	if d.Photo != nil {
		ph := *d.Photo
		p.Photo = &ph
	}
	return p
}

// ChangedFields names the fields the payload carries, in form order.
func (p UpdatePayload) ChangedFields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Name != nil, "name")
	add(p.Nickname != nil, "nickname")
	add(p.Email != nil, "email")
	add(p.Cellphone != nil, "cellphone")
	add(p.Address != nil, "address")
	add(p.Password != nil, "password")
	add(p.Photo != nil, "photo")
	return out
}

// Close tears the session down: both cooldowns stop and any reply still in
// flight is discarded. Closing twice is a no-op.
func (s *EditSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.email.Close()
	s.phone.Close()
	s.emit(context.Background(), EditEventSessionClosed, "")
}

func (s *EditSession) emit(ctx context.Context, ev EditEventType, ch ChannelKind) {
	e := EditEvent{LoginID: s.baseline.LoginID, SessionID: s.id, Event: ev}
	if ch != "" {
		e.Channel = strPtr(string(ch))
	}
	emitEvent(ctx, s.events, s.log, e)
}

func strPtr(s string) *string { return &s }
