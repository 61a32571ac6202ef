package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type recordingEvents struct {
	events []EditEvent
}

func (r *recordingEvents) LogEditEvent(_ context.Context, e EditEvent) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []EditEventType {
	out := make([]EditEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

func newTestSession(t *testing.T, m MemberBaseline) (*EditSession, *fakeBackend, clockwork.FakeClock) {
	t.Helper()
	be := newFakeBackend(m)
	clock := clockwork.NewFakeClock()
	s := NewEditSession(m, be, SessionOptions{Clock: clock})
	t.Cleanup(s.Close)
	return s, be, clock
}

func TestSession_UntouchedDraftCommitsNothingButLoginID(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())

	p, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.True(t, p.Empty())
	require.Equal(t, "user01", p.LoginID)
	require.Equal(t, 1, be.count("update"))
	require.True(t, s.Closed())
}

func TestSession_ChangedEmailBlocksSubmitWithoutNetwork(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())
	require.NoError(t, s.SetEmail("new@example.com"))

	_, err := s.Submit(context.Background())
	var re *ReauthRequiredError
	require.True(t, errors.As(err, &re))
	require.Equal(t, []ChannelKind{ChannelEmail}, re.Channels)
	require.Equal(t, 0, be.networkCalls())
	require.False(t, s.Closed())
}

func TestSession_BothChannelsReported(t *testing.T) {
	s, _, _ := newTestSession(t, localMember())
	require.NoError(t, s.Apply(DraftUpdate{
		Email:     strPtr("new@example.com"),
		Cellphone: strPtr("01099998888"),
	}))
	err := s.CheckSubmit()
	var re *ReauthRequiredError
	require.True(t, errors.As(err, &re))
	require.Equal(t, []ChannelKind{ChannelEmail, ChannelPhone}, re.Channels)
}

func TestSession_VerifiedEmailCommitsNormalizedValue(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())
	ctx := context.Background()
	require.NoError(t, s.SetEmail(" new@example.com "))
	require.NoError(t, s.SetNickname("kimchi"))

	_, err := s.SendEmailCode(ctx)
	require.NoError(t, err)
	_, err = s.ConfirmEmailCode(ctx, "123456")
	require.NoError(t, err)

	p, err := s.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", *p.Email)
	require.Equal(t, "kimchi", *p.Nickname)
	require.Nil(t, p.Name)
	require.Nil(t, p.Cellphone)
	require.Nil(t, p.Password)
	require.Equal(t, []string{"nickname", "email"}, p.ChangedFields())
	require.Len(t, be.payloads, 1)
}

func TestSession_EditAfterVerifyResetsChannel(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())
	ctx := context.Background()
	require.NoError(t, s.SetCellphone("010-9999-8888"))
	_, err := s.SendPhoneCode(ctx)
	require.NoError(t, err)
	_, err = s.ConfirmPhoneCode(ctx, "654321")
	require.NoError(t, err)
	require.NoError(t, s.CheckSubmit())

	require.NoError(t, s.SetCellphone("01099998887"))
	require.Equal(t, StatusIdle, s.PhoneChannel().State().Status)
	require.ErrorIs(t, s.CheckSubmit(), ErrReauthRequired)

	_, err = s.Submit(ctx)
	require.ErrorIs(t, err, ErrReauthRequired)
	require.Equal(t, 0, be.count("update"))
}

func TestSession_RevertingFieldClearsRequirement(t *testing.T) {
	s, _, _ := newTestSession(t, localMember())
	require.NoError(t, s.SetEmail("new@example.com"))
	require.True(t, s.Requirement().EmailVerificationRequired)
	require.NoError(t, s.SetEmail("kim@example.com"))
	require.False(t, s.Requirement().EmailVerificationRequired)
}

func TestSession_PasswordPolicyBlocksSubmit(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())
	require.NoError(t, s.SetPasswordChange(true))
	require.NoError(t, s.SetNewPassword("abc", "abc"))

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrPasswordPolicyViolation)

	require.NoError(t, s.SetNewPassword("abcd", "abce"))
	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrPasswordPolicyViolation)
	require.Equal(t, 0, be.networkCalls())

	require.NoError(t, s.SetNewPassword("abcd", "abcd"))
	p, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abcd", *p.Password)
}

func TestSession_TogglingPasswordOffClearsValues(t *testing.T) {
	s, _, _ := newTestSession(t, localMember())
	require.NoError(t, s.SetPasswordChange(true))
	require.NoError(t, s.SetNewPassword("abcd", "abcd"))
	require.NoError(t, s.SetPasswordChange(false))

	d := s.Draft()
	require.Empty(t, d.NewPassword)
	require.Empty(t, d.NewPasswordConfirm)
	require.False(t, s.Requirement().PasswordConfirmationRequired)
}

func TestSession_SocialAccountHasNoPassword(t *testing.T) {
	s, _, _ := newTestSession(t, socialMember())
	require.Equal(t, AccountSocial, s.AccountKind())
	require.ErrorIs(t, s.SetPasswordChange(true), ErrSocialNoPassword)
	require.ErrorIs(t, s.SetNewPassword("abcd", "abcd"), ErrSocialNoPassword)

	require.NoError(t, s.SetName("Lee"))
	p, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.Nil(t, p.Password)
	require.Equal(t, "Lee", *p.Name)
}

func TestSession_CommitFailureKeepsDraft(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())
	be.update = func(UpdatePayload) error { return ErrServerRejected }
	require.NoError(t, s.SetAddress("Busan"))

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrServerRejected)
	require.False(t, s.Closed())
	require.Equal(t, "Busan", s.Draft().Address)

	be.update = func(UpdatePayload) error { return nil }
	p, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Busan", *p.Address)
}

func TestSession_DraftFrozenDuringSubmit(t *testing.T) {
	s, be, _ := newTestSession(t, localMember())
	started := make(chan struct{})
	release := make(chan struct{})
	be.update = func(UpdatePayload) error {
		close(started)
		<-release
		return nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	<-started
	require.ErrorIs(t, s.SetName("Park"), ErrRequestInFlight)
	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrRequestInFlight)
	require.Equal(t, "request_in_flight", s.View().BlockedBy)

	close(release)
	require.NoError(t, <-done)
}

func TestSession_CloseStopsTimersAndRefusesWork(t *testing.T) {
	s, _, _ := newTestSession(t, localMember())
	ctx := context.Background()
	require.NoError(t, s.SetCellphone("01099998888"))
	st, err := s.SendPhoneCode(ctx)
	require.NoError(t, err)
	require.Equal(t, 60, st.CooldownSecondsRemaining)

	s.Close()
	s.Close()
	require.Equal(t, 0, s.PhoneChannel().State().CooldownSecondsRemaining)
	require.ErrorIs(t, s.SetName("x"), ErrSessionClosed)
	_, err = s.SendEmailCode(ctx)
	require.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Submit(ctx)
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_EventsFollowLifecycle(t *testing.T) {
	m := localMember()
	be := newFakeBackend(m)
	rec := &recordingEvents{}
	s := NewEditSession(m, be, SessionOptions{ID: "sess-1", Clock: clockwork.NewFakeClock(), Events: rec})
	ctx := context.Background()

	require.NoError(t, s.SetEmail("new@example.com"))
	_, err := s.SendEmailCode(ctx)
	require.NoError(t, err)
	_, err = s.ConfirmEmailCode(ctx, "123456")
	require.NoError(t, err)
	_, err = s.Submit(ctx)
	require.NoError(t, err)

	require.Equal(t, []EditEventType{
		EditEventOTCSent, EditEventOTCVerified, EditEventProfileCommitted, EditEventSessionClosed,
	}, rec.types())
	require.Equal(t, "sess-1", rec.events[0].SessionID)
	require.Equal(t, "email", *rec.events[0].Channel)
	require.Equal(t, []string{"email"}, rec.events[2].Fields)
}

func TestSession_View(t *testing.T) {
	m := localMember()
	s, _, _ := newTestSession(t, m)
	require.NoError(t, s.SetPasswordChange(true))
	require.NoError(t, s.SetNewPassword("abcd", "abcx"))
	require.NoError(t, s.SetPhoto(&PhotoFile{Filename: "me.png", ContentType: "image/png", Data: []byte("png")}))

	v := s.View()
	require.Equal(t, "user01", v.LoginID)
	require.Equal(t, AccountLocal, v.AccountKind)
	require.Equal(t, PasswordMatchMismatch, v.Draft.PasswordMatch)
	require.Equal(t, DefaultPhotoURL, v.Photo.CurrentURL)
	require.True(t, v.Photo.Replaced)
	require.Equal(t, 3, v.Photo.SizeBytes)
	require.False(t, v.CanSubmit)
	require.Equal(t, "password_policy_violation", v.BlockedBy)

	require.NoError(t, s.SetNewPassword("abcd", "abcd"))
	v = s.View()
	require.True(t, v.CanSubmit)
	require.Empty(t, v.BlockedBy)
}

func TestSession_DraftEditBeforeChannelBindsResetsChannel(t *testing.T) {
	s, _, _ := newTestSession(t, localMember())
	ctx := context.Background()
	require.NoError(t, s.SetEmail("old@example.com"))
	stale := s.Draft().Email
	require.NoError(t, s.SetEmail("new@example.com"))

	// the channel binds the value read before the edit landed
	_, err := s.EmailChannel().Send(ctx, stale)
	require.NoError(t, err)
	require.ErrorIs(t, s.observeDraft(s.EmailChannel(), stale, draftEmail), ErrSuperseded)

	st := s.EmailChannel().State()
	require.Equal(t, StatusIdle, st.Status)
	require.Empty(t, st.TransactionID)
	_, err = s.ConfirmEmailCode(ctx, "123456")
	require.ErrorIs(t, err, ErrNoPendingTransaction)
	require.True(t, s.Requirement().EmailVerificationRequired)
}

func TestSession_ViewIgnoresVerificationOfOtherValue(t *testing.T) {
	s, _, _ := newTestSession(t, localMember())
	ctx := context.Background()
	require.NoError(t, s.SetEmail("new@example.com"))
	_, err := s.EmailChannel().Send(ctx, "old@example.com")
	require.NoError(t, err)
	_, err = s.EmailChannel().Confirm(ctx, "123456")
	require.NoError(t, err)

	v := s.View()
	require.Equal(t, StatusVerified, v.Email.Status)
	require.False(t, v.Email.Locked)
	require.True(t, v.Email.CanSend)
	require.True(t, v.Requirement.EmailVerificationRequired)

	st, err := s.SendEmailCode(ctx)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", st.Value)
	require.Equal(t, StatusAwaitingCode, st.Status)
}
