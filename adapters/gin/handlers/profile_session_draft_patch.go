package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
	core "github.com/open-rails/profilekit/core"
)

// HandleProfileSessionDraftPATCH handles PATCH /profile/sessions/:id/draft
// Applies a partial draft edit. Changing email or cellphone resets that
// channel's verification in the same step.
func HandleProfileSessionDraftPATCH(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, svc)
		if !ok {
			return
		}
		var u core.DraftUpdate
		if err := c.ShouldBindJSON(&u); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if err := sess.Apply(u); err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sess.View())
	}
}
