package ginutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/core"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	t.Run("bearer", func(t *testing.T) {
		if got := BearerToken("Bearer abc.def"); got != "abc.def" {
			t.Fatalf("expected abc.def, got %q", got)
		}
	})
	t.Run("case_insensitive", func(t *testing.T) {
		if got := BearerToken("bearer xyz"); got != "xyz" {
			t.Fatalf("expected xyz, got %q", got)
		}
	})
	t.Run("basic_rejected", func(t *testing.T) {
		if got := BearerToken("Basic Zm9v"); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		core.ErrInvalidFormat:                  http.StatusBadRequest,
		core.ErrNoPendingTransaction:           http.StatusConflict,
		core.ErrCooldownActive:                 http.StatusTooManyRequests,
		core.ErrServerRejected:                 http.StatusUnprocessableEntity,
		core.ErrNetworkFailure:                 http.StatusBadGateway,
		core.ErrSessionNotFound:                http.StatusNotFound,
		core.ErrGateRequired:                   http.StatusForbidden,
		core.ErrPasswordRejected:               http.StatusUnauthorized,
		&core.PasswordPolicyError{Reason: "x"}: http.StatusUnprocessableEntity,
		errors.New("boom"):                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestCoreErr_ReauthCarriesChannels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	CoreErr(c, &core.ReauthRequiredError{Channels: []core.ChannelKind{core.ChannelEmail, core.ChannelPhone}})
	require.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Error    string   `json:"error"`
		Channels []string `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "reauth_required", body.Error)
	require.Equal(t, []string{"email", "phone"}, body.Channels)
}
