package core

import (
	"regexp"
	"strings"
)

// DefaultPhotoURL is shown when a member has no profile photo.
const DefaultPhotoURL = "/img/default-card.png"

// MemberBaseline is the member record captured when an edit session opens.
// It is never mutated afterwards and only serves as the diff reference.
type MemberBaseline struct {
	LoginID        string  `json:"loginId"`
	Name           string  `json:"name"`
	Nickname       string  `json:"nickname"`
	Email          string  `json:"email"`
	Cellphone      string  `json:"cellphone"`
	Address        string  `json:"address"`
	PhotoURL       string  `json:"photo"`
	AuthLevel      int     `json:"authLevel"`
	AuthName       string  `json:"authName"`
	SocialProvider *string `json:"socialProvider,omitempty"`
}

// IsSocial reports whether the account was created through a third-party
// identity provider. A blank provider string counts as a local account.
func (m MemberBaseline) IsSocial() bool {
	return m.SocialProvider != nil && strings.TrimSpace(*m.SocialProvider) != ""
}

// AccountKind returns the kind used by the reauth policy.
func (m MemberBaseline) AccountKind() AccountKind {
	if m.IsSocial() {
		return AccountSocial
	}
	return AccountLocal
}

// PhotoOrDefault returns the baseline photo URL, or the placeholder.
func (m MemberBaseline) PhotoOrDefault() string {
	if strings.TrimSpace(m.PhotoURL) == "" {
		return DefaultPhotoURL
	}
	return m.PhotoURL
}

type AccountKind string

const (
	AccountLocal  AccountKind = "local"
	AccountSocial AccountKind = "social"
)

// PhotoFile is a replacement profile photo received from the caller.
type PhotoFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EditDraft is the mutable working copy of a member's editable fields.
type EditDraft struct {
	Name      string
	Nickname  string
	Email     string
	Cellphone string
	Address   string

	// PasswordChange is the member's opt-in to change the password.
	PasswordChange     bool
	NewPassword        string
	NewPasswordConfirm string

	Photo *PhotoFile
}

func draftFromBaseline(m MemberBaseline) EditDraft {
	return EditDraft{
		Name:      m.Name,
		Nickname:  m.Nickname,
		Email:     m.Email,
		Cellphone: m.Cellphone,
		Address:   m.Address,
	}
}

var (
	reEmail       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reMobilePhone = regexp.MustCompile(`^01[016789]\d{7,8}$`)
	reNonDigit    = regexp.MustCompile(`\D`)
)

// NormalizeEmail trims surrounding whitespace. Case is preserved because the
// backend compares addresses verbatim.
func NormalizeEmail(v string) string { return strings.TrimSpace(v) }

// NormalizePhone strips every non-digit character.
func NormalizePhone(v string) string { return reNonDigit.ReplaceAllString(v, "") }

// ValidEmail reports whether v is shaped like local@domain.tld.
func ValidEmail(v string) bool { return reEmail.MatchString(NormalizeEmail(v)) }

// ValidPhone reports whether v normalises to a domestic mobile number.
func ValidPhone(v string) bool { return reMobilePhone.MatchString(NormalizePhone(v)) }
