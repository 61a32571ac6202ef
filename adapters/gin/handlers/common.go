package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
	core "github.com/open-rails/profilekit/core"
)

// BackendFunc returns the member backend for the current request.
type BackendFunc func(c *gin.Context) core.MemberBackend

// ProfileService is the part of core.Service the handlers call.
type ProfileService interface {
	Profile(ctx context.Context, backend core.MemberReader) (core.ProfileView, error)
	Probe(ctx context.Context, backend core.GateBackend) core.GateResult
	PassGate(ctx context.Context, backend core.GateBackend, ownerID, password string) (core.GateResult, string, error)
	OpenSession(ctx context.Context, backend core.MemberBackend, ownerID, ticket string) (*core.EditSession, error)
	Session(ownerID, id string) (*core.EditSession, error)
	CloseSession(ownerID, id string) error
}

var _ ProfileService = (*core.Service)(nil)

func ownerID(c *gin.Context) (string, bool) {
	uid := c.GetString("auth.user_id")
	if uid == "" {
		ginutil.Unauthorized(c, "unauthorized")
		return "", false
	}
	return uid, true
}

// loadSession resolves :id for the caller, responding on failure.
func loadSession(c *gin.Context, svc ProfileService) (*core.EditSession, bool) {
	uid, ok := ownerID(c)
	if !ok {
		return nil, false
	}
	sess, err := svc.Session(uid, c.Param("id"))
	if err != nil {
		ginutil.CoreErr(c, err)
		return nil, false
	}
	return sess, true
}
