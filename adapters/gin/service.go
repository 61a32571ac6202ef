package profilegin

import (
	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/gin/handlers"
	"github.com/open-rails/profilekit/adapters/ginutil"
	core "github.com/open-rails/profilekit/core"
	"github.com/open-rails/profilekit/memberapi"
	redisstore "github.com/open-rails/profilekit/storage/redis"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service wraps core.Service with HTTP mounting.
type Service struct {
	svc     *core.Service
	backend BackendFunc
	auth    gin.HandlerFunc
	log     logrus.FieldLogger
}

// NewService constructs a core.Service from cfg and wraps it for HTTP
// mounting. Member calls go through cli with the caller's credentials.
func NewService(cfg core.Config, cli *memberapi.Client) (*Service, error) {
	coreSvc, err := core.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(coreSvc, ForwardCredentials(cli)), nil
}

// Wrap mounts an existing core.Service. backend is resolved per request.
func Wrap(svc *core.Service, backend BackendFunc) *Service {
	return &Service{svc: svc, backend: backend, log: logrus.StandardLogger()}
}

func (s *Service) WithLogger(l logrus.FieldLogger) *Service {
	if l != nil {
		s.log = l
		s.svc = s.svc.WithLogger(l)
	}
	return s
}

func (s *Service) WithEventLogger(l core.EventLogger) *Service {
	s.svc = s.svc.WithEventLogger(l)
	return s
}

// WithRedis keeps gate tickets in Redis so any replica can open the session.
// Edit sessions themselves stay in process memory.
func (s *Service) WithRedis(rd redis.UniversalClient) *Service {
	s.svc = s.svc.WithEphemeralStore(redisstore.NewKV(rd), core.EphemeralRedis)
	return s
}

// WithVerifier authenticates callers with bearer JWTs.
func (s *Service) WithVerifier(v *Verifier) *Service { s.auth = v.MiddlewareRequired(); return s }

// WithAuth installs any middleware that sets "auth.user_id".
func (s *Service) WithAuth(mw gin.HandlerFunc) *Service { s.auth = mw; return s }

// GinRegisterAPI mounts the profile edit endpoints under the given router/group (e.g., /api/v1).
func (s *Service) GinRegisterAPI(api gin.IRouter) *Service {
	auth := s.auth
	if auth == nil {
		s.log.Warn("profilekit: no auth middleware configured; every request will be rejected")
		auth = func(c *gin.Context) { ginutil.Unauthorized(c, "unauthorized") }
	}
	backend := handlers.BackendFunc(s.backend)

	p := api.Group("/profile", auth)

	// Read-only profile
	p.GET("/me", handlers.HandleProfileMeGET(s.svc, backend))

	// Password gate
	p.GET("/gate", handlers.HandleProfileGateGET(s.svc, backend))
	p.POST("/gate", handlers.HandleProfileGatePOST(s.svc, backend))

	// Edit sessions
	p.POST("/sessions", handlers.HandleProfileSessionsPOST(s.svc, backend))
	p.GET("/sessions/:id", handlers.HandleProfileSessionGET(s.svc))
	p.PATCH("/sessions/:id/draft", handlers.HandleProfileSessionDraftPATCH(s.svc))
	p.PUT("/sessions/:id/photo", handlers.HandleProfileSessionPhotoPUT(s.svc))
	p.POST("/sessions/:id/submit", handlers.HandleProfileSessionSubmitPOST(s.svc))
	p.DELETE("/sessions/:id", handlers.HandleProfileSessionDELETE(s.svc))

	// Re-verification channels
	p.POST("/sessions/:id/email/send", handlers.HandleProfileSessionSendPOST(s.svc, core.ChannelEmail))
	p.POST("/sessions/:id/email/confirm", handlers.HandleProfileSessionConfirmPOST(s.svc, core.ChannelEmail))
	p.POST("/sessions/:id/phone/send", handlers.HandleProfileSessionSendPOST(s.svc, core.ChannelPhone))
	p.POST("/sessions/:id/phone/confirm", handlers.HandleProfileSessionConfirmPOST(s.svc, core.ChannelPhone))

	return s
}

func (s *Service) Core() *core.Service { return s.svc }
