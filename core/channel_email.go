package core

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type emailDriver struct {
	api EmailVerifier
}

// NewEmailChannel returns the email verification channel. Email sends are
// not throttled on the client.
func NewEmailChannel(api EmailVerifier, clock clockwork.Clock, log logrus.FieldLogger) *Channel {
	return newChannel(emailDriver{api: api}, clock, log)
}

func (emailDriver) kind() ChannelKind         { return ChannelEmail }
func (emailDriver) normalize(v string) string { return NormalizeEmail(v) }
func (emailDriver) usesCooldown() bool        { return false }

func (emailDriver) validate(v string) (string, bool) {
	if !ValidEmail(v) {
		return "Enter a valid email address.", false
	}
	return "", true
}

func (d emailDriver) send(ctx context.Context, dest string) (OTCResult, error) {
	return d.api.SendEmailCode(ctx, dest)
}

func (d emailDriver) check(ctx context.Context, txID, _ string, code string) (OTCResult, error) {
	return d.api.CheckEmailCode(ctx, txID, code)
}

func (emailDriver) transactionID(_ string, res OTCResult) string { return res.TransactionID }

var emailMessages = channelMessages{
	sent:          "A verification code was sent to your email.",
	sendFailed:    "Failed to send the verification code.",
	sendNetwork:   "Network error: the verification code could not be sent.",
	cooldown:      "Please wait before requesting another code.",
	mismatch:      "The verification code does not match.",
	checkNetwork:  "Network error: verification failed.",
	noPending:     "Request a verification code first.",
	emptyCode:     "Enter the verification code.",
	cooldownWait:  "Please wait before requesting another code.",
	alreadyDone:   "Email is already verified.",
	requestActive: "A request is already in progress.",
}

func (emailDriver) messages() channelMessages { return emailMessages }
