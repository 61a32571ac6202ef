package profilegin

import "github.com/gin-gonic/gin"

// Claims is a typed view of authenticated user information attached by middleware.
type Claims struct {
	UserID    string
	Email     string
	SessionID string
}

// claimsKey holds Claims on the gin context; handlers read the owner id from
// "auth.user_id".
const claimsKey = "profilekit.claims"

func attachClaims(c *gin.Context, cl Claims) {
	c.Set("auth.user_id", cl.UserID)
	c.Set(claimsKey, cl)
}
