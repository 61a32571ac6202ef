package core

import "context"

// OTCOutcome classifies a member-backend reply to an OTC call.
type OTCOutcome int

const (
	OTCRejected OTCOutcome = iota
	OTCOK
	// OTCCooldown means the backend throttled a resend. It is informational.
	OTCCooldown
)

// OTCResult is one reply from the OTC endpoints, already mapped from the
// backend envelope.
type OTCResult struct {
	Outcome       OTCOutcome
	TransactionID string
	// CooldownSeconds carries cooldownSec on OTCOK and retryAfterSec on
	// OTCCooldown; 0 means the backend omitted it.
	CooldownSeconds int
	Message         string
}

// PasswordCheck is the member backend's verdict on a password confirmation.
type PasswordCheck struct {
	OK           bool
	SocialBypass bool
	// Text is the raw response body, surfaced to the member on rejection.
	Text string
}

// UpdatePayload is what a successful submit hands to the profile updater.
// Nil fields are unchanged and must not be sent.
type UpdatePayload struct {
	LoginID   string
	Name      *string
	Nickname  *string
	Email     *string
	Cellphone *string
	Address   *string
	Password  *string
	Photo     *PhotoFile
}

// Empty reports whether the payload changes nothing.
func (p UpdatePayload) Empty() bool {
	return p.Name == nil && p.Nickname == nil && p.Email == nil && p.Cellphone == nil &&
		p.Address == nil && p.Password == nil && p.Photo == nil
}

type MemberReader interface {
	FetchMember(ctx context.Context) (MemberBaseline, error)
}

type PasswordChecker interface {
	CheckPassword(ctx context.Context, password string) (PasswordCheck, error)
}

type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, p UpdatePayload) error
}

// EmailVerifier sends and checks email one-time codes. A non-nil error means
// the request never produced a usable reply.
type EmailVerifier interface {
	SendEmailCode(ctx context.Context, email string) (OTCResult, error)
	CheckEmailCode(ctx context.Context, txID, code string) (OTCResult, error)
}

// PhoneVerifier sends and checks SMS one-time codes for a digits-only phone.
type PhoneVerifier interface {
	SendPhoneCode(ctx context.Context, phone string) (OTCResult, error)
	CheckPhoneCode(ctx context.Context, phone, code string) (OTCResult, error)
}

// MemberBackend is everything an edit session needs from the member service.
type MemberBackend interface {
	MemberReader
	PasswordChecker
	ProfileUpdater
	EmailVerifier
	PhoneVerifier
}
