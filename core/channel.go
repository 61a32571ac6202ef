package core

import (
	"context"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ChannelKind names a contact channel that can be re-verified.
type ChannelKind string

const (
	ChannelEmail ChannelKind = "email"
	ChannelPhone ChannelKind = "phone"
)

type ChannelStatus string

const (
	StatusIdle         ChannelStatus = "idle"
	StatusSending      ChannelStatus = "sending"
	StatusAwaitingCode ChannelStatus = "awaiting_code"
	StatusVerifying    ChannelStatus = "verifying"
	StatusVerified     ChannelStatus = "verified"
	// StatusFailed is part of the reported vocabulary but the channel never
	// enters it: failed sends fall back to idle, failed checks to awaiting_code.
	StatusFailed ChannelStatus = "failed"
)

// DefaultCooldownSeconds applies when the backend omits a cooldown value.
const DefaultCooldownSeconds = 60

// ChannelState is a point-in-time view of one channel.
type ChannelState struct {
	Channel                  ChannelKind   `json:"channel"`
	Status                   ChannelStatus `json:"status"`
	TransactionID            string        `json:"transactionId,omitempty"`
	LastError                string        `json:"lastError,omitempty"`
	Notice                   string        `json:"notice,omitempty"`
	CooldownSecondsRemaining int           `json:"cooldownSecondsRemaining"`
	// Value is the normalised destination the current code or verification
	// is bound to.
	Value string `json:"value,omitempty"`
}

// CanSend reports whether a send or resend may be triggered now.
func (s ChannelState) CanSend() bool {
	switch s.Status {
	case StatusSending, StatusVerifying, StatusVerified:
		return false
	}
	return s.CooldownSecondsRemaining == 0
}

// channelDriver holds what differs between the email and phone channels.
type channelDriver interface {
	kind() ChannelKind
	normalize(v string) string
	// validate returns a field message when v cannot be sent to.
	validate(normalized string) (string, bool)
	send(ctx context.Context, dest string) (OTCResult, error)
	check(ctx context.Context, txID, dest, code string) (OTCResult, error)
	// transactionID picks the token to keep after a successful send.
	transactionID(dest string, res OTCResult) string
	usesCooldown() bool
	messages() channelMessages
}

type channelMessages struct {
	sent          string
	sendFailed    string
	sendNetwork   string
	cooldown      string
	mismatch      string
	checkNetwork  string
	noPending     string
	emptyCode     string
	cooldownWait  string
	alreadyDone   string
	requestActive string
}

// Channel runs the send/confirm one-time-code protocol for one contact
// channel. Verification is bound to the value that was sent to: Observe
// resets the channel as soon as the live field diverges from it.
type Channel struct {
	drv   channelDriver
	timer *CooldownTimer
	log   logrus.FieldLogger

	mu      sync.Mutex
	status  ChannelStatus
	txID    string
	bound   string
	lastErr string
	notice  string
	gen     uint64
	closed  bool
}

func newChannel(drv channelDriver, clock clockwork.Clock, log logrus.FieldLogger) *Channel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Channel{
		drv:    drv,
		timer:  NewCooldownTimer(clock),
		log:    log.WithField("channel", string(drv.kind())),
		status: StatusIdle,
	}
}

func (c *Channel) Kind() ChannelKind { return c.drv.kind() }

// Cooldown exposes the channel's resend timer.
func (c *Channel) Cooldown() *CooldownTimer { return c.timer }

func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Channel) stateLocked() ChannelState {
	return ChannelState{
		Channel:                  c.drv.kind(),
		Status:                   c.status,
		TransactionID:            c.txID,
		LastError:                c.lastErr,
		Notice:                   c.notice,
		CooldownSecondsRemaining: c.timer.Remaining(),
		Value:                    c.bound,
	}
}

// VerifiedFor reports whether the channel is verified for value.
func (c *Channel) VerifiedFor(value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusVerified && c.bound == c.drv.normalize(value)
}

// Observe must be called with the live field value on every edit. When the
// value no longer matches the one a code was sent to (or verified for), the
// channel returns to idle, drops its transaction and stops its cooldown. Any
// reply still in flight for the old value is discarded.
func (c *Channel) Observe(value string) {
	v := c.drv.normalize(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || v == c.bound {
		return
	}
	if c.status == StatusIdle && c.txID == "" && c.bound == "" {
		c.lastErr, c.notice = "", ""
		return
	}
	c.resetLocked()
}

func (c *Channel) resetLocked() {
	c.gen++
	c.status = StatusIdle
	c.txID = ""
	c.bound = ""
	c.lastErr = ""
	c.notice = ""
	c.timer.Cancel()
}

// Close invalidates pending replies and stops the cooldown for good.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.timer.Cancel()
}

// Send requests a one-time code for value. Validation failures never reach
// the network. A throttled resend is reported through the returned state, not
// as an error.
func (c *Channel) Send(ctx context.Context, value string) (ChannelState, error) {
	msgs := c.drv.messages()
	dest := c.drv.normalize(value)

	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		st := c.stateLocked()
		c.mu.Unlock()
		return st, err
	}
	if c.status == StatusVerified && c.bound == dest {
		st := c.stateLocked()
		c.mu.Unlock()
		return st, channelErr(c.drv.kind(), ErrAlreadyVerified, msgs.alreadyDone)
	}
	if c.drv.usesCooldown() && c.timer.Remaining() > 0 {
		st := c.stateLocked()
		c.mu.Unlock()
		return st, channelErr(c.drv.kind(), ErrCooldownActive, msgs.cooldownWait)
	}
	if msg, ok := c.drv.validate(dest); !ok {
		c.lastErr = msg
		st := c.stateLocked()
		c.mu.Unlock()
		return st, channelErr(c.drv.kind(), ErrInvalidFormat, msg)
	}
	c.gen++
	gen := c.gen
	c.status = StatusSending
	c.bound = dest
	c.txID = ""
	c.lastErr, c.notice = "", ""
	c.mu.Unlock()

	res, err := c.drv.send(ctx, dest)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen != gen {
		c.log.WithField("dest", dest).Debug("otc_send_reply_discarded")
		return c.stateLocked(), channelErr(c.drv.kind(), ErrSuperseded, "")
	}
	if err != nil {
		c.log.WithError(err).Warn("otc_send_failed")
		c.status, c.txID, c.bound = StatusIdle, "", ""
		c.lastErr = msgs.sendNetwork
		return c.stateLocked(), channelErr(c.drv.kind(), ErrNetworkFailure, msgs.sendNetwork)
	}

	switch {
	case res.Outcome == OTCOK:
		c.status = StatusAwaitingCode
		c.txID = c.drv.transactionID(dest, res)
		c.notice = msgs.sent
		if c.drv.usesCooldown() {
			c.timer.Start(orDefault(res.CooldownSeconds, DefaultCooldownSeconds))
		}
		return c.stateLocked(), nil
	case res.Outcome == OTCCooldown && c.drv.usesCooldown():
		c.status = StatusAwaitingCode
		c.txID = c.drv.transactionID(dest, res)
		c.notice = firstNonEmpty(res.Message, msgs.cooldown)
		c.timer.Start(orDefault(res.CooldownSeconds, DefaultCooldownSeconds))
		return c.stateLocked(), nil
	default:
		msg := firstNonEmpty(res.Message, msgs.sendFailed)
		c.log.WithField("message", res.Message).Info("otc_send_rejected")
		c.status, c.txID, c.bound = StatusIdle, "", ""
		c.lastErr = msg
		return c.stateLocked(), channelErr(c.drv.kind(), ErrServerRejected, msg)
	}
}

// Confirm checks code against the pending transaction. A mismatch keeps the
// transaction so the member can retry as often as they like.
func (c *Channel) Confirm(ctx context.Context, code string) (ChannelState, error) {
	msgs := c.drv.messages()
	code = strings.TrimSpace(code)

	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		st := c.stateLocked()
		c.mu.Unlock()
		return st, err
	}
	if c.status == StatusVerified {
		st := c.stateLocked()
		c.mu.Unlock()
		return st, channelErr(c.drv.kind(), ErrAlreadyVerified, msgs.alreadyDone)
	}
	if c.txID == "" {
		c.lastErr = msgs.noPending
		st := c.stateLocked()
		c.mu.Unlock()
		return st, channelErr(c.drv.kind(), ErrNoPendingTransaction, msgs.noPending)
	}
	if code == "" {
		c.lastErr = msgs.emptyCode
		st := c.stateLocked()
		c.mu.Unlock()
		return st, channelErr(c.drv.kind(), ErrInvalidFormat, msgs.emptyCode)
	}
	c.gen++
	gen := c.gen
	c.status = StatusVerifying
	c.lastErr = ""
	txID, dest := c.txID, c.bound
	c.mu.Unlock()

	res, err := c.drv.check(ctx, txID, dest, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen != gen {
		c.log.WithField("dest", dest).Debug("otc_check_reply_discarded")
		return c.stateLocked(), channelErr(c.drv.kind(), ErrSuperseded, "")
	}
	if err != nil {
		c.log.WithError(err).Warn("otc_check_failed")
		c.status = StatusAwaitingCode
		c.lastErr = msgs.checkNetwork
		return c.stateLocked(), channelErr(c.drv.kind(), ErrNetworkFailure, msgs.checkNetwork)
	}
	if res.Outcome != OTCOK {
		msg := firstNonEmpty(res.Message, msgs.mismatch)
		c.status = StatusAwaitingCode
		c.lastErr = msg
		return c.stateLocked(), channelErr(c.drv.kind(), ErrServerRejected, msg)
	}
	c.status = StatusVerified
	c.lastErr, c.notice = "", ""
	c.timer.Cancel()
	return c.stateLocked(), nil
}

func (c *Channel) guardLocked() error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.status == StatusSending || c.status == StatusVerifying {
		return channelErr(c.drv.kind(), ErrRequestInFlight, c.drv.messages().requestActive)
	}
	return nil
}

func orDefault(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
