package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
)

// HandleProfileSessionsPOST handles POST /profile/sessions
// Opens an edit session on the caller's current member record.
func HandleProfileSessionsPOST(svc ProfileService, backend BackendFunc) gin.HandlerFunc {
	type openReq struct {
		Ticket string `json:"ticket"`
	}
	return func(c *gin.Context) {
		uid, ok := ownerID(c)
		if !ok {
			return
		}
		var req openReq
		// an empty body is fine for social accounts
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				ginutil.BadRequest(c, "invalid_request")
				return
			}
		}
		sess, err := svc.OpenSession(c.Request.Context(), backend(c), uid, req.Ticket)
		if err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, sess.View())
	}
}
