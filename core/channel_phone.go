package core

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type phoneDriver struct {
	api PhoneVerifier
}

// NewPhoneChannel returns the SMS verification channel. The backend
// identifies a pending phone code by the number itself, so the normalised
// number doubles as the transaction token.
func NewPhoneChannel(api PhoneVerifier, clock clockwork.Clock, log logrus.FieldLogger) *Channel {
	return newChannel(phoneDriver{api: api}, clock, log)
}

func (phoneDriver) kind() ChannelKind         { return ChannelPhone }
func (phoneDriver) normalize(v string) string { return NormalizePhone(v) }
func (phoneDriver) usesCooldown() bool        { return true }

func (phoneDriver) validate(v string) (string, bool) {
	if v == "" {
		return "Enter a phone number.", false
	}
	if !ValidPhone(v) {
		return "Phone number format is invalid, e.g. 010-0000-0000.", false
	}
	return "", true
}

func (d phoneDriver) send(ctx context.Context, dest string) (OTCResult, error) {
	return d.api.SendPhoneCode(ctx, dest)
}

func (d phoneDriver) check(ctx context.Context, _ string, dest, code string) (OTCResult, error) {
	return d.api.CheckPhoneCode(ctx, dest, code)
}

func (phoneDriver) transactionID(dest string, _ OTCResult) string { return dest }

var phoneMessages = channelMessages{
	sent:          "A verification code was sent.",
	sendFailed:    "Failed to send the verification code.",
	sendNetwork:   "Network error: the verification code could not be sent.",
	cooldown:      "Waiting before a code can be resent.",
	mismatch:      "The verification code does not match.",
	checkNetwork:  "Network error: verification failed.",
	noPending:     "Request a verification code first.",
	emptyCode:     "Enter the verification code.",
	cooldownWait:  "Please wait before requesting another code.",
	alreadyDone:   "Phone number is already verified.",
	requestActive: "A request is already in progress.",
}

func (phoneDriver) messages() channelMessages { return phoneMessages }
