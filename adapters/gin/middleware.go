package profilegin

import (
	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/gin/handlers"
	"github.com/open-rails/profilekit/adapters/ginutil"
	"github.com/open-rails/profilekit/core"
	"github.com/open-rails/profilekit/memberapi"
)

// BackendFunc returns the member backend to use for the current request,
// authenticated as the caller.
type BackendFunc = handlers.BackendFunc

// ForwardCredentials builds a BackendFunc that forwards the caller's
// Authorization header and cookies to the member backend.
func ForwardCredentials(cli *memberapi.Client) BackendFunc {
	return func(c *gin.Context) core.MemberBackend {
		return cli.WithCredentials(c.GetHeader("Authorization"), c.Request.Cookies())
	}
}

// TrustedHeader authenticates callers by a header set by an upstream proxy.
// It exists for local development only; production mounts the Verifier.
func TrustedHeader(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(name)
		if uid == "" {
			ginutil.Unauthorized(c, "missing_user")
			return
		}
		attachClaims(c, Claims{UserID: uid})
		c.Next()
	}
}
