package core

// ReauthRequirement lists what must still happen before a draft may be
// committed. It is derived on demand and never stored.
type ReauthRequirement struct {
	PasswordConfirmationRequired bool `json:"passwordConfirmationRequired"`
	EmailVerificationRequired    bool `json:"emailVerificationRequired"`
	PhoneVerificationRequired    bool `json:"phoneVerificationRequired"`
}

// Unresolved returns the channels still blocking a commit, email first.
func (r ReauthRequirement) Unresolved() []ChannelKind {
	var out []ChannelKind
	if r.EmailVerificationRequired {
		out = append(out, ChannelEmail)
	}
	if r.PhoneVerificationRequired {
		out = append(out, ChannelPhone)
	}
	return out
}

// EmailChanged compares trimmed addresses.
func EmailChanged(d EditDraft, b MemberBaseline) bool {
	return NormalizeEmail(d.Email) != NormalizeEmail(b.Email)
}

// PhoneChanged compares digit-normalised numbers.
func PhoneChanged(d EditDraft, b MemberBaseline) bool {
	return NormalizePhone(d.Cellphone) != NormalizePhone(b.Cellphone)
}

// PasswordConfirmationRequired never holds for social accounts, whatever the
// draft carries.
func PasswordConfirmationRequired(d EditDraft, kind AccountKind) bool {
	return kind != AccountSocial && d.PasswordChange && d.NewPassword != ""
}

// EvaluateReauth applies the reauth policy to a draft.
func EvaluateReauth(d EditDraft, b MemberBaseline, kind AccountKind, email, phone ChannelStatus) ReauthRequirement {
	return ReauthRequirement{
		PasswordConfirmationRequired: PasswordConfirmationRequired(d, kind),
		EmailVerificationRequired:    EmailChanged(d, b) && email != StatusVerified,
		PhoneVerificationRequired:    PhoneChanged(d, b) && phone != StatusVerified,
	}
}

// MinPasswordLength is the shortest new password accepted on commit.
const MinPasswordLength = 4

// CheckPasswordPolicy validates a new password against its confirmation.
func CheckPasswordPolicy(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return &PasswordPolicyError{Reason: "too_short"}
	}
	if password != confirm {
		return &PasswordPolicyError{Reason: "mismatch"}
	}
	return nil
}

// PasswordMatch is the live hint shown under the confirmation field.
type PasswordMatch string

const (
	PasswordMatchUnknown  PasswordMatch = "unknown"
	PasswordMatchOK       PasswordMatch = "match"
	PasswordMatchMismatch PasswordMatch = "mismatch"
)

func passwordMatchHint(d EditDraft) PasswordMatch {
	if d.NewPassword == "" || d.NewPasswordConfirm == "" {
		return PasswordMatchUnknown
	}
	if d.NewPassword == d.NewPasswordConfirm {
		return PasswordMatchOK
	}
	return PasswordMatchMismatch
}
