package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
	core "github.com/open-rails/profilekit/core"
)

// HandleProfileSessionSendPOST handles POST /profile/sessions/:id/{email,phone}/send
// Sends a one-time code to the draft value of the channel. A throttled
// resend still answers 200 with the server notice in the state.
func HandleProfileSessionSendPOST(svc ProfileService, kind core.ChannelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, svc)
		if !ok {
			return
		}
		var (
			st  core.ChannelState
			err error
		)
		if kind == core.ChannelPhone {
			st, err = sess.SendPhoneCode(c.Request.Context())
		} else {
			st, err = sess.SendEmailCode(c.Request.Context())
		}
		if err != nil {
			ginutil.CoreErrWith(c, err, gin.H{"state": st})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": st})
	}
}

// HandleProfileSessionConfirmPOST handles POST /profile/sessions/:id/{email,phone}/confirm
func HandleProfileSessionConfirmPOST(svc ProfileService, kind core.ChannelKind) gin.HandlerFunc {
	type confirmReq struct {
		Code string `json:"code"`
	}
	return func(c *gin.Context) {
		sess, ok := loadSession(c, svc)
		if !ok {
			return
		}
		var req confirmReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		var (
			st  core.ChannelState
			err error
		)
		if kind == core.ChannelPhone {
			st, err = sess.ConfirmPhoneCode(c.Request.Context(), req.Code)
		} else {
			st, err = sess.ConfirmEmailCode(c.Request.Context(), req.Code)
		}
		if err != nil {
			ginutil.CoreErrWith(c, err, gin.H{"state": st})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": st})
	}
}
