package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidFormat           = errors.New("invalid_format")
	ErrNetworkFailure          = errors.New("network_failure")
	ErrServerRejected          = errors.New("server_rejected")
	ErrNoPendingTransaction    = errors.New("no_pending_transaction")
	ErrReauthRequired          = errors.New("reauth_required")
	ErrPasswordPolicyViolation = errors.New("password_policy_violation")

	ErrRequestInFlight   = errors.New("request_in_flight")
	ErrCooldownActive    = errors.New("cooldown_active")
	ErrAlreadyVerified   = errors.New("already_verified")
	ErrSuperseded        = errors.New("superseded")
	ErrSessionClosed     = errors.New("session_closed")
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrSocialNoPassword  = errors.New("social_account_has_no_password")
	ErrPasswordRejected  = errors.New("password_rejected")
	ErrGateRequired      = errors.New("gate_required")
	ErrMemberUnavailable = errors.New("member_unavailable")
)

// ChannelError is a failure of one verification channel. It wraps one of the
// taxonomy sentinels so callers can branch with errors.Is.
type ChannelError struct {
	Channel ChannelKind
	Err     error
	// Message is the text shown next to the field, verbatim from the server
	// when it supplied one.
	Message string
}

func (e *ChannelError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Channel, e.Err, e.Message)
}

func (e *ChannelError) Unwrap() error { return e.Err }

func channelErr(kind ChannelKind, err error, msg string) *ChannelError {
	return &ChannelError{Channel: kind, Err: err, Message: msg}
}

// ReauthRequiredError blocks a submit and names every unresolved channel.
type ReauthRequiredError struct {
	Channels []ChannelKind
}

func (e *ReauthRequiredError) Error() string {
	names := make([]string, 0, len(e.Channels))
	for _, c := range e.Channels {
		names = append(names, string(c))
	}
	return "reauth_required: " + strings.Join(names, ",")
}

func (e *ReauthRequiredError) Unwrap() error { return ErrReauthRequired }

// PasswordPolicyError names the rule a new password broke.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string {
	return "password_policy_violation: " + e.Reason
}

func (e *PasswordPolicyError) Unwrap() error { return ErrPasswordPolicyViolation }

var codedErrors = []error{
	ErrInvalidFormat,
	ErrNetworkFailure,
	ErrServerRejected,
	ErrNoPendingTransaction,
	ErrReauthRequired,
	ErrPasswordPolicyViolation,
	ErrRequestInFlight,
	ErrCooldownActive,
	ErrAlreadyVerified,
	ErrSuperseded,
	ErrSessionClosed,
	ErrSessionNotFound,
	ErrSocialNoPassword,
	ErrPasswordRejected,
	ErrGateRequired,
	ErrMemberUnavailable,
}

// ErrorCode maps an error to its snake_case code, or "internal_error".
func ErrorCode(err error) string {
	for _, c := range codedErrors {
		if errors.Is(err, c) {
			return c.Error()
		}
	}
	return "internal_error"
}
