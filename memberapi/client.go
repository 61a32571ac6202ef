// Package memberapi talks to the member backend that owns profiles and
// one-time-code delivery. It implements core.MemberBackend.
package memberapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/open-rails/profilekit/core"
	"github.com/sirupsen/logrus"
)

// Paths are the backend endpoints, relative to the base URL.
type Paths struct {
	Member       string `yaml:"member"`
	CheckPw      string `yaml:"check_pw"`
	Modify       string `yaml:"modify"`
	EmailSend    string `yaml:"email_send"`
	EmailCheck   string `yaml:"email_check"`
	PhoneSend    string `yaml:"phone_send"`
	PhoneConfirm string `yaml:"phone_confirm"`
}

func DefaultPaths() Paths {
	return Paths{
		Member:       "/api/member/getUsrInfo",
		CheckPw:      "/usr/member/doCheckPw",
		Modify:       "/usr/member/doModify",
		EmailSend:    "/api/verify/email/send",
		EmailCheck:   "/api/verify/email/check",
		PhoneSend:    "/api/verify/sms/send",
		PhoneConfirm: "/api/verify/sms/confirm",
	}
}

// DefaultEmailPurpose is sent with every email code request.
const DefaultEmailPurpose = "signup"

type Config struct {
	BaseURL      string
	Paths        Paths
	EmailPurpose string
	Timeout      time.Duration
}

// Client is safe for concurrent use. WithCredentials derives a per-caller
// copy that forwards the caller's Authorization header and cookies.
type Client struct {
	base    string
	paths   Paths
	purpose string
	http    *http.Client
	log     logrus.FieldLogger

	authorization string
	cookies       []*http.Cookie
}

var _ core.MemberBackend = (*Client)(nil)

func New(cfg Config) *Client {
	p := cfg.Paths
	d := DefaultPaths()
	p.Member = firstNonEmpty(p.Member, d.Member)
	p.CheckPw = firstNonEmpty(p.CheckPw, d.CheckPw)
	p.Modify = firstNonEmpty(p.Modify, d.Modify)
	p.EmailSend = firstNonEmpty(p.EmailSend, d.EmailSend)
	p.EmailCheck = firstNonEmpty(p.EmailCheck, d.EmailCheck)
	p.PhoneSend = firstNonEmpty(p.PhoneSend, d.PhoneSend)
	p.PhoneConfirm = firstNonEmpty(p.PhoneConfirm, d.PhoneConfirm)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		paths:   p,
		purpose: firstNonEmpty(cfg.EmailPurpose, DefaultEmailPurpose),
		http:    &http.Client{Timeout: timeout},
		log:     logrus.StandardLogger(),
	}
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

func (c *Client) WithLogger(l logrus.FieldLogger) *Client {
	if l != nil {
		c.log = l
	}
	return c
}

// WithCredentials returns a copy of c that authenticates as the caller.
func (c *Client) WithCredentials(authorization string, cookies []*http.Cookie) *Client {
	cp := *c
	cp.authorization = authorization
	cp.cookies = append([]*http.Cookie(nil), cookies...)
	return &cp
}

// envelope is the backend's reply wrapper.
type envelope struct {
	ResultCode string          `json:"resultCode"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func (e envelope) success() bool { return strings.HasPrefix(e.ResultCode, "S-") }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	return req, nil
}

// do sends req and returns the status and body. Transport failures wrap
// core.ErrNetworkFailure.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", core.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", core.ErrNetworkFailure, err)
	}
	return resp.StatusCode, b, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (int, envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, envelope{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	status, body, err := c.do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	var env envelope
	if jerr := json.Unmarshal(body, &env); jerr != nil {
		// an unparsable reply is a rejection, not a transport failure
		c.log.WithField("path", path).WithField("status", status).Debug("member_api_bad_envelope")
	}
	return status, env, nil
}

// FetchMember loads the signed-in member.
func (c *Client) FetchMember(ctx context.Context) (core.MemberBaseline, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.paths.Member, nil)
	if err != nil {
		return core.MemberBaseline{}, err
	}
	status, body, err := c.do(req)
	if err != nil {
		return core.MemberBaseline{}, err
	}
	if status/100 != 2 {
		return core.MemberBaseline{}, fmt.Errorf("%w: member lookup returned %d", core.ErrServerRejected, status)
	}
	var m core.MemberBaseline
	if err := json.Unmarshal(body, &m); err != nil {
		return core.MemberBaseline{}, fmt.Errorf("%w: %v", core.ErrServerRejected, err)
	}
	return m, nil
}

// CheckPassword posts loginPw as a form. The reply is plain text: it
// contains SOCIAL_OK for accounts without a local password and OK on a
// match.
func (c *Client) CheckPassword(ctx context.Context, password string) (core.PasswordCheck, error) {
	form := url.Values{"loginPw": {password}}
	req, err := c.newRequest(ctx, http.MethodPost, c.paths.CheckPw, strings.NewReader(form.Encode()))
	if err != nil {
		return core.PasswordCheck{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, body, err := c.do(req)
	if err != nil {
		return core.PasswordCheck{}, err
	}
	txt := string(body)
	chk := core.PasswordCheck{Text: txt}
	switch {
	case strings.Contains(txt, "SOCIAL_OK"):
		chk.SocialBypass = true
	case strings.Contains(txt, "OK"):
		chk.OK = true
	}
	return chk, nil
}

func (c *Client) SendEmailCode(ctx context.Context, email string) (core.OTCResult, error) {
	status, env, err := c.postJSON(ctx, c.paths.EmailSend, map[string]string{
		"email":   email,
		"purpose": c.purpose,
	})
	if err != nil {
		return core.OTCResult{}, err
	}
	if status/100 != 2 || !env.success() {
		return core.OTCResult{Outcome: core.OTCRejected, Message: env.Msg}, nil
	}
	var data struct {
		TxID string `json:"txId"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if strings.TrimSpace(data.TxID) == "" {
		c.log.WithField("result_code", env.ResultCode).Warn("email_send_missing_tx_id")
		return core.OTCResult{Outcome: core.OTCRejected, Message: env.Msg}, nil
	}
	return core.OTCResult{Outcome: core.OTCOK, TransactionID: data.TxID, Message: env.Msg}, nil
}

func (c *Client) CheckEmailCode(ctx context.Context, txID, code string) (core.OTCResult, error) {
	status, env, err := c.postJSON(ctx, c.paths.EmailCheck, map[string]string{
		"txId":    txID,
		"code":    code,
		"purpose": c.purpose,
	})
	if err != nil {
		return core.OTCResult{}, err
	}
	if status/100 != 2 || !env.success() {
		return core.OTCResult{Outcome: core.OTCRejected, Message: env.Msg}, nil
	}
	return core.OTCResult{Outcome: core.OTCOK, Message: env.Msg}, nil
}

// SendPhoneCode maps S-OK and F-COOLDOWN. The cooldown reply is honoured
// whatever the HTTP status, since throttling is usually signalled with 429.
func (c *Client) SendPhoneCode(ctx context.Context, phone string) (core.OTCResult, error) {
	status, env, err := c.postJSON(ctx, c.paths.PhoneSend, map[string]string{"phone": phone})
	if err != nil {
		return core.OTCResult{}, err
	}
	var data struct {
		CooldownSec   int `json:"cooldownSec"`
		RetryAfterSec int `json:"retryAfterSec"`
	}
	_ = json.Unmarshal(env.Data, &data)
	switch {
	case status/100 == 2 && env.ResultCode == "S-OK":
		return core.OTCResult{Outcome: core.OTCOK, CooldownSeconds: data.CooldownSec, Message: env.Msg}, nil
	case env.ResultCode == "F-COOLDOWN":
		return core.OTCResult{Outcome: core.OTCCooldown, CooldownSeconds: data.RetryAfterSec, Message: env.Msg}, nil
	default:
		return core.OTCResult{Outcome: core.OTCRejected, Message: env.Msg}, nil
	}
}

func (c *Client) CheckPhoneCode(ctx context.Context, phone, code string) (core.OTCResult, error) {
	status, env, err := c.postJSON(ctx, c.paths.PhoneConfirm, map[string]string{
		"phone": phone,
		"code":  code,
	})
	if err != nil {
		return core.OTCResult{}, err
	}
	if status/100 == 2 && env.ResultCode == "S-OK" {
		return core.OTCResult{Outcome: core.OTCOK, Message: env.Msg}, nil
	}
	return core.OTCResult{Outcome: core.OTCRejected, Message: env.Msg}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
