package core

// SessionView is the read model a UI renders from.
type SessionView struct {
	ID          string      `json:"id"`
	LoginID     string      `json:"loginId"`
	AccountKind AccountKind `json:"accountKind"`
	Closed      bool        `json:"closed"`
	Committed   bool        `json:"committed"`

	Draft DraftView   `json:"draft"`
	Email ChannelView `json:"email"`
	Phone ChannelView `json:"phone"`
	Photo PhotoView   `json:"photo"`

	Requirement ReauthRequirement `json:"requirement"`
	CanSubmit   bool              `json:"canSubmit"`
	// BlockedBy is the error code that currently prevents a submit.
	BlockedBy string        `json:"blockedBy,omitempty"`
	Pending   []ChannelKind `json:"pendingChannels,omitempty"`
}

// DraftView omits the password values themselves.
type DraftView struct {
	Name           string        `json:"name"`
	Nickname       string        `json:"nickname"`
	Email          string        `json:"email"`
	Cellphone      string        `json:"cellphone"`
	Address        string        `json:"address"`
	PasswordChange bool          `json:"passwordChange"`
	PasswordMatch  PasswordMatch `json:"passwordMatch"`
}

type ChannelView struct {
	ChannelState
	Changed bool `json:"changed"`
	// Locked mirrors the UI rule that a verified field is read-only.
	Locked  bool `json:"locked"`
	CanSend bool `json:"canSend"`
}

type PhotoView struct {
	CurrentURL  string `json:"currentUrl"`
	Replaced    bool   `json:"replaced"`
	Filename    string `json:"filename,omitempty"`
	SizeBytes   int    `json:"sizeBytes,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// View snapshots the session for rendering.
func (s *EditSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, b := s.draft, s.baseline
	req := s.requirementLocked()
	v := SessionView{
		ID:          s.id,
		LoginID:     b.LoginID,
		AccountKind: s.kind,
		Closed:      s.closed,
		Committed:   s.committed,
		Draft: DraftView{
			Name:           d.Name,
			Nickname:       d.Nickname,
			Email:          d.Email,
			Cellphone:      d.Cellphone,
			Address:        d.Address,
			PasswordChange: d.PasswordChange,
			PasswordMatch:  passwordMatchHint(d),
		},
		Email:       channelView(s.email.State(), effectiveStatus(s.email, d.Email), EmailChanged(d, b)),
		Phone:       channelView(s.phone.State(), effectiveStatus(s.phone, d.Cellphone), PhoneChanged(d, b)),
		Photo:       PhotoView{CurrentURL: b.PhotoOrDefault()},
		Requirement: req,
		Pending:     req.Unresolved(),
	}
	if d.Photo != nil {
		v.Photo.Replaced = true
		v.Photo.Filename = d.Photo.Filename
		v.Photo.SizeBytes = len(d.Photo.Data)
		v.Photo.ContentType = d.Photo.ContentType
	}
	if err := s.mutableLocked(); err != nil {
		v.BlockedBy = ErrorCode(err)
	} else if err := s.checkLocked(req); err != nil {
		v.BlockedBy = ErrorCode(err)
	}
	v.CanSubmit = v.BlockedBy == ""
	return v
}

// channelView reports lock and send state from eff, the status as it applies
// to the value currently in the draft.
func channelView(st ChannelState, eff ChannelStatus, changed bool) ChannelView {
	live := st
	live.Status = eff
	return ChannelView{
		ChannelState: st,
		Changed:      changed,
		Locked:       eff == StatusVerified,
		CanSend:      live.CanSend(),
	}
}

// ProfileView is the read-only member page.
type ProfileView struct {
	LoginID     string      `json:"loginId"`
	Name        string      `json:"name"`
	Nickname    string      `json:"nickname"`
	Email       string      `json:"email"`
	Cellphone   string      `json:"cellphone"`
	Address     string      `json:"address"`
	PhotoURL    string      `json:"photoUrl"`
	AuthLevel   int         `json:"authLevel"`
	AuthName    string      `json:"authName,omitempty"`
	AccountKind AccountKind `json:"accountKind"`
	// EditRequiresGate is false for social accounts, which open the editor
	// without a password check.
	EditRequiresGate bool `json:"editRequiresGate"`
}

func NewProfileView(m MemberBaseline) ProfileView {
	return ProfileView{
		LoginID:          m.LoginID,
		Name:             m.Name,
		Nickname:         m.Nickname,
		Email:            m.Email,
		Cellphone:        m.Cellphone,
		Address:          m.Address,
		PhotoURL:         m.PhotoOrDefault(),
		AuthLevel:        m.AuthLevel,
		AuthName:         m.AuthName,
		AccountKind:      m.AccountKind(),
		EditRequiresGate: !m.IsSocial(),
	}
}
