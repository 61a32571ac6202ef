package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
)

// HandleProfileSessionSubmitPOST handles POST /profile/sessions/:id/submit
// Commits the draft. Blocked drafts never reach the member backend.
func HandleProfileSessionSubmitPOST(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, svc)
		if !ok {
			return
		}
		p, err := sess.Submit(c.Request.Context())
		if err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		fields := p.ChangedFields()
		if fields == nil {
			fields = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "fields": fields})
	}
}
