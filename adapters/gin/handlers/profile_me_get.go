package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
)

// HandleProfileMeGET handles GET /profile/me
// Returns the caller's member record and whether editing needs the password
// gate first.
func HandleProfileMeGET(svc ProfileService, backend BackendFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ownerID(c); !ok {
			return
		}
		p, err := svc.Profile(c.Request.Context(), backend(c))
		if err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
