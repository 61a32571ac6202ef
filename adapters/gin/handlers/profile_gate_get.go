package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleProfileGateGET handles GET /profile/gate
// Reports whether the password prompt can be skipped. Probe failures are
// reported as bypass=false so the client shows the prompt.
func HandleProfileGateGET(svc ProfileService, backend BackendFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ownerID(c); !ok {
			return
		}
		res := svc.Probe(c.Request.Context(), backend(c))
		c.JSON(http.StatusOK, gin.H{"bypass": res.Bypassed})
	}
}
