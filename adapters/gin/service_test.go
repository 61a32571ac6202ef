package profilegin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	core "github.com/open-rails/profilekit/core"
	"github.com/open-rails/profilekit/memberapi"
)

type socialOnly struct{ core.MemberBackend }

func (socialOnly) FetchMember(context.Context) (core.MemberBaseline, error) {
	p := "naver"
	return core.MemberBaseline{LoginID: "user01", SocialProvider: &p}, nil
}

func TestGinRegisterAPI_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := Wrap(core.NewService(core.Options{}), func(*gin.Context) core.MemberBackend { return socialOnly{} }).
		WithAuth(TrustedHeader("X-User-ID"))
	t.Cleanup(svc.Core().Shutdown)

	r := gin.New()
	svc.GinRegisterAPI(r.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/profile/me":                          true,
		"GET /api/v1/profile/gate":                        true,
		"POST /api/v1/profile/gate":                       true,
		"POST /api/v1/profile/sessions":                   true,
		"GET /api/v1/profile/sessions/:id":                true,
		"PATCH /api/v1/profile/sessions/:id/draft":        true,
		"PUT /api/v1/profile/sessions/:id/photo":          true,
		"POST /api/v1/profile/sessions/:id/email/send":    true,
		"POST /api/v1/profile/sessions/:id/email/confirm": true,
		"POST /api/v1/profile/sessions/:id/phone/send":    true,
		"POST /api/v1/profile/sessions/:id/phone/confirm": true,
		"POST /api/v1/profile/sessions/:id/submit":        true,
		"DELETE /api/v1/profile/sessions/:id":             true,
	}
	for _, ri := range r.Routes() {
		delete(want, ri.Method+" "+ri.Path)
	}
	if len(want) != 0 {
		t.Fatalf("routes not mounted: %v", want)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/sessions", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for social member, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGinRegisterAPI_NoAuthRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, err := NewService(core.Config{}, memberapi.New(memberapi.Config{BaseURL: "http://127.0.0.1:1"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	r := gin.New()
	svc.GinRegisterAPI(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile/gate", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
