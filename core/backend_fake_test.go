package core

import (
	"context"
	"errors"
	"sync"
)

var errTransport = errors.New("connection refused")

// fakeBackend is an in-memory member backend. Reply funcs may be swapped per
// test; calls are counted so tests can assert that nothing hit the network.
type fakeBackend struct {
	mu sync.Mutex

	member    MemberBaseline
	memberErr error
	pwCheck   func(pw string) (PasswordCheck, error)

	emailSend  func(email string) (OTCResult, error)
	emailCheck func(txID, code string) (OTCResult, error)
	phoneSend  func(phone string) (OTCResult, error)
	phoneCheck func(phone, code string) (OTCResult, error)
	update     func(p UpdatePayload) error

	calls    map[string]int
	payloads []UpdatePayload
}

func newFakeBackend(m MemberBaseline) *fakeBackend {
	return &fakeBackend{
		member: m,
		calls:  map[string]int{},
		pwCheck: func(pw string) (PasswordCheck, error) {
			if pw == "secret" {
				return PasswordCheck{OK: true, Text: "OK"}, nil
			}
			return PasswordCheck{Text: "password mismatch"}, nil
		},
		emailSend: func(string) (OTCResult, error) {
			return OTCResult{Outcome: OTCOK, TransactionID: "tx-1"}, nil
		},
		emailCheck: func(txID, code string) (OTCResult, error) {
			if txID == "tx-1" && code == "123456" {
				return OTCResult{Outcome: OTCOK}, nil
			}
			return OTCResult{Outcome: OTCRejected, Message: "code mismatch"}, nil
		},
		phoneSend: func(string) (OTCResult, error) {
			return OTCResult{Outcome: OTCOK, CooldownSeconds: 60}, nil
		},
		phoneCheck: func(_, code string) (OTCResult, error) {
			if code == "654321" {
				return OTCResult{Outcome: OTCOK}, nil
			}
			return OTCResult{Outcome: OTCRejected, Message: "wrong code"}, nil
		},
		update: func(UpdatePayload) error { return nil },
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) FetchMember(ctx context.Context) (MemberBaseline, error) {
	f.hit("fetch")
	return f.member, f.memberErr
}

func (f *fakeBackend) CheckPassword(ctx context.Context, pw string) (PasswordCheck, error) {
	f.hit("check_pw")
	return f.pwCheck(pw)
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, p UpdatePayload) error {
	f.hit("update")
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	return f.update(p)
}

func (f *fakeBackend) SendEmailCode(ctx context.Context, email string) (OTCResult, error) {
	f.hit("email_send")
	return f.emailSend(email)
}

func (f *fakeBackend) CheckEmailCode(ctx context.Context, txID, code string) (OTCResult, error) {
	f.hit("email_check")
	return f.emailCheck(txID, code)
}

func (f *fakeBackend) SendPhoneCode(ctx context.Context, phone string) (OTCResult, error) {
	f.hit("phone_send")
	return f.phoneSend(phone)
}

func (f *fakeBackend) CheckPhoneCode(ctx context.Context, phone, code string) (OTCResult, error) {
	f.hit("phone_check")
	return f.phoneCheck(phone, code)
}

func localMember() MemberBaseline {
	return MemberBaseline{
		LoginID:   "user01",
		Name:      "Kim",
		Nickname:  "kimmy",
		Email:     "kim@example.com",
		Cellphone: "01012345678",
		Address:   "Seoul",
	}
}

func socialMember() MemberBaseline {
	m := localMember()
	p := "kakao"
	m.SocialProvider = &p
	return m
}
