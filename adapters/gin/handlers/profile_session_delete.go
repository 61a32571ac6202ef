package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
)

// HandleProfileSessionDELETE handles DELETE /profile/sessions/:id
// Abandons the edit; pending cooldowns stop and late replies are dropped.
func HandleProfileSessionDELETE(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := ownerID(c)
		if !ok {
			return
		}
		if err := svc.CloseSession(uid, c.Param("id")); err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
