package ginutil

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/core"
	log "github.com/sirupsen/logrus"
)

// Error helpers
func SendErr(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}
func BadRequest(c *gin.Context, code string)   { SendErr(c, http.StatusBadRequest, code) }
func Unauthorized(c *gin.Context, code string) { SendErr(c, http.StatusUnauthorized, code) }
func Forbidden(c *gin.Context, code string)    { SendErr(c, http.StatusForbidden, code) }
func ServerErr(c *gin.Context, code string)    { SendErr(c, http.StatusInternalServerError, code) }
func NotFound(c *gin.Context, code string)     { SendErr(c, http.StatusNotFound, code) }

// ServerErrWithLog logs the underlying error/context before responding with a generic server error.
func ServerErrWithLog(c *gin.Context, code string, err error, message string) {
	entry := log.WithContext(c.Request.Context()).WithFields(log.Fields{
		"code":   code,
		"path":   c.FullPath(),
		"method": c.Request.Method,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if strings.TrimSpace(message) == "" {
		message = "profilekit server error"
	}
	entry.Error(message)
	ServerErr(c, code)
}

var statusByCode = map[string]int{
	"invalid_format":                 http.StatusBadRequest,
	"no_pending_transaction":         http.StatusConflict,
	"request_in_flight":              http.StatusConflict,
	"already_verified":               http.StatusConflict,
	"superseded":                     http.StatusConflict,
	"session_closed":                 http.StatusConflict,
	"reauth_required":                http.StatusConflict,
	"cooldown_active":                http.StatusTooManyRequests,
	"server_rejected":                http.StatusUnprocessableEntity,
	"password_policy_violation":      http.StatusUnprocessableEntity,
	"social_account_has_no_password": http.StatusUnprocessableEntity,
	"network_failure":                http.StatusBadGateway,
	"member_unavailable":             http.StatusBadGateway,
	"session_not_found":              http.StatusNotFound,
	"gate_required":                  http.StatusForbidden,
	"password_rejected":              http.StatusUnauthorized,
}

// StatusFor maps a core error to its HTTP status.
func StatusFor(err error) int {
	if st, ok := statusByCode[core.ErrorCode(err)]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// CoreErr responds with the error code of err and whatever detail its typed
// form carries. Unknown errors are logged and reported as internal_error.
func CoreErr(c *gin.Context, err error) { CoreErrWith(c, err, nil) }

// CoreErrWith is CoreErr with extra body fields, e.g. the channel state.
func CoreErrWith(c *gin.Context, err error, extra gin.H) {
	code := core.ErrorCode(err)
	if code == "internal_error" {
		ServerErrWithLog(c, code, err, "unexpected profile edit error")
		return
	}
	body := gin.H{"error": code}
	var (
		ce *core.ChannelError
		re *core.ReauthRequiredError
		pe *core.PasswordPolicyError
		pr *core.PasswordRejectedError
	)
	switch {
	case errors.As(err, &re):
		body["channels"] = re.Channels
	case errors.As(err, &pe):
		body["reason"] = pe.Reason
	case errors.As(err, &pr):
		body["message"] = pr.Text
	case errors.As(err, &ce):
		body["channel"] = ce.Channel
		if ce.Message != "" {
			body["message"] = ce.Message
		}
	}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(StatusFor(err), body)
}

// BearerToken extracts a Bearer token from an Authorization header value.
func BearerToken(authorization string) string {
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
