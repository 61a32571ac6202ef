package memberapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/open-rails/profilekit/core"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchMember_ForwardsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/member/getUsrInfo", r.URL.Path)
		require.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		ck, err := r.Cookie("JSESSIONID")
		require.NoError(t, err)
		require.Equal(t, "s1", ck.Value)
		writeJSON(w, 200, map[string]any{
			"id": 7, "loginId": "user01", "name": "Kim", "email": "kim@example.com",
			"cellphone": "01012345678", "photo": "", "socialProvider": "kakao",
			"authLevel": 3, "authName": "일반회원",
		})
	})
	m, err := c.WithCredentials("Bearer abc", []*http.Cookie{{Name: "JSESSIONID", Value: "s1"}}).
		FetchMember(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user01", m.LoginID)
	require.True(t, m.IsSocial())
	require.Equal(t, "일반회원", m.AuthName)
	require.Equal(t, 3, m.AuthLevel)
	require.Equal(t, core.DefaultPhotoURL, m.PhotoOrDefault())
}

func TestFetchMember_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.FetchMember(context.Background())
	require.ErrorIs(t, err, core.ErrServerRejected)
}

func TestCheckPassword(t *testing.T) {
	replies := map[string]string{"": "SOCIAL_OK", "secret": "OK", "bad": "비밀번호가 일치하지 않습니다."}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		_, _ = io.WriteString(w, replies[r.PostForm.Get("loginPw")])
	})
	ctx := context.Background()

	chk, err := c.CheckPassword(ctx, "")
	require.NoError(t, err)
	require.True(t, chk.SocialBypass)
	require.False(t, chk.OK)

	chk, err = c.CheckPassword(ctx, "secret")
	require.NoError(t, err)
	require.True(t, chk.OK)

	chk, err = c.CheckPassword(ctx, "bad")
	require.NoError(t, err)
	require.False(t, chk.OK)
	require.Equal(t, replies["bad"], chk.Text)
}

func TestSendEmailCode(t *testing.T) {
	var got map[string]string
	reply := map[string]any{"resultCode": "S-1", "msg": "sent", "data": map[string]any{"txId": "tx-9"}}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/verify/email/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, 200, reply)
	})

	res, err := c.SendEmailCode(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Equal(t, core.OTCOK, res.Outcome)
	require.Equal(t, "tx-9", res.TransactionID)
	require.Equal(t, map[string]string{"email": "new@example.com", "purpose": "signup"}, got)

	reply = map[string]any{"resultCode": "S-1", "msg": "sent"}
	res, err = c.SendEmailCode(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Equal(t, core.OTCRejected, res.Outcome, "success without txId cannot be confirmed")

	reply = map[string]any{"resultCode": "F-DUP", "msg": "already used"}
	res, err = c.SendEmailCode(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Equal(t, core.OTCRejected, res.Outcome)
	require.Equal(t, "already used", res.Message)
}

func TestCheckEmailCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "tx-9", body["txId"])
		if body["code"] == "123456" {
			writeJSON(w, 200, map[string]any{"resultCode": "S-1", "msg": "ok"})
			return
		}
		writeJSON(w, 400, map[string]any{"resultCode": "F-1", "msg": "mismatch"})
	})
	res, err := c.CheckEmailCode(context.Background(), "tx-9", "123456")
	require.NoError(t, err)
	require.Equal(t, core.OTCOK, res.Outcome)

	res, err = c.CheckEmailCode(context.Background(), "tx-9", "000000")
	require.NoError(t, err)
	require.Equal(t, core.OTCRejected, res.Outcome)
	require.Equal(t, "mismatch", res.Message)
}

func TestSendPhoneCode(t *testing.T) {
	status, reply := 200, map[string]any{"resultCode": "S-OK", "data": map[string]any{"cooldownSec": 90}}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, reply)
	})
	ctx := context.Background()

	res, err := c.SendPhoneCode(ctx, "01099998888")
	require.NoError(t, err)
	require.Equal(t, core.OTCOK, res.Outcome)
	require.Equal(t, 90, res.CooldownSeconds)

	status, reply = 429, map[string]any{"resultCode": "F-COOLDOWN", "msg": "wait", "data": map[string]any{"retryAfterSec": 33}}
	res, err = c.SendPhoneCode(ctx, "01099998888")
	require.NoError(t, err)
	require.Equal(t, core.OTCCooldown, res.Outcome)
	require.Equal(t, 33, res.CooldownSeconds)
	require.Equal(t, "wait", res.Message)

	status, reply = 200, map[string]any{"resultCode": "S-1"}
	res, err = c.SendPhoneCode(ctx, "01099998888")
	require.NoError(t, err)
	require.Equal(t, core.OTCRejected, res.Outcome, "phone success is exactly S-OK")
}

func TestCheckPhoneCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/verify/sms/confirm", r.URL.Path)
		writeJSON(w, 200, map[string]any{"resultCode": "S-OK"})
	})
	res, err := c.CheckPhoneCode(context.Background(), "01099998888", "654321")
	require.NoError(t, err)
	require.Equal(t, core.OTCOK, res.Outcome)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	c := New(Config{BaseURL: base})

	_, err := c.SendEmailCode(context.Background(), "a@b.co")
	require.ErrorIs(t, err, core.ErrNetworkFailure)
	_, err = c.CheckPassword(context.Background(), "x")
	require.ErrorIs(t, err, core.ErrNetworkFailure)
}

func TestUpdateProfile_SendsOnlyChangedFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/usr/member/doModify", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, []string{"kimchi"}, r.MultipartForm.Value["nickname"])
		require.Equal(t, []string{"01099998888"}, r.MultipartForm.Value["cellphone"])
		require.NotContains(t, r.MultipartForm.Value, "name")
		require.NotContains(t, r.MultipartForm.Value, "loginPw")
		fh := r.MultipartForm.File["photoFile"]
		require.Len(t, fh, 1)
		require.Equal(t, "me.png", fh[0].Filename)
		require.Equal(t, "image/png", fh[0].Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	})
	nick, phone := "kimchi", "01099998888"
	err := c.UpdateProfile(context.Background(), core.UpdatePayload{
		LoginID:   "user01",
		Nickname:  &nick,
		Cellphone: &phone,
		Photo:     &core.PhotoFile{Filename: "me.png", ContentType: "image/png", Data: []byte("png")},
	})
	require.NoError(t, err)
}

func TestUpdateProfile_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	err := c.UpdateProfile(context.Background(), core.UpdatePayload{LoginID: "user01"})
	require.ErrorIs(t, err, core.ErrServerRejected)
}
