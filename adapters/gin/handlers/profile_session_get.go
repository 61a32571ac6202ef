package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleProfileSessionGET handles GET /profile/sessions/:id
func HandleProfileSessionGET(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, sess.View())
	}
}
