package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
)

// HandleProfileGatePOST handles POST /profile/gate
// Checks the member's password and returns a single-use ticket for opening
// an edit session. Social accounts get bypass=true instead.
func HandleProfileGatePOST(svc ProfileService, backend BackendFunc) gin.HandlerFunc {
	type gateReq struct {
		Password string `json:"password"`
	}
	return func(c *gin.Context) {
		uid, ok := ownerID(c)
		if !ok {
			return
		}
		var req gateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		res, ticket, err := svc.PassGate(c.Request.Context(), backend(c), uid, req.Password)
		if err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		if res.Bypassed {
			c.JSON(http.StatusOK, gin.H{"bypass": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ticket": ticket})
	}
}
