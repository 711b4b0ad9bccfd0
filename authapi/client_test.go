package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/internal/devapi"
	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/token"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/stretchr/testify/require"
)

func newDevBackend(t *testing.T, options ...devapi.Option) (*devapi.Server, *authapi.Client) {
	t.Helper()
	api := devapi.New(options...)
	srv := httptest.NewServer(api)
	t.Cleanup(func() {
		srv.Close()
		api.Close()
	})
	return api, authapi.New(srv.URL+"/", authapi.WithTimeout(5*time.Second))
}

func TestClient_LoginAndMe(t *testing.T) {
	api, client := newDevBackend(t)
	seeded, err := api.AddUser("Ada", "a@b.com", "secret1", users.RoleAdmin)
	require.NoError(t, err)

	resp, err := client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, seeded.ID, resp.User.ID)
	require.Equal(t, users.RoleAdmin, resp.User.Role)

	claims, err := token.Decode(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, claims.UserID)

	me, err := client.Me(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", me.Email)
	require.Equal(t, users.RoleAdmin, me.Role)
}

func TestClient_LoginInvalidCredentials(t *testing.T) {
	api, client := newDevBackend(t)
	_, err := api.AddUser("Ada", "a@b.com", "secret1", users.RoleStudent)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrAuthentication)
	require.NotErrorIs(t, err, errors.ErrRateLimited)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, errors.CodeInvalidCredentials, apiErr.Code)
}

func TestClient_LoginRateLimited(t *testing.T) {
	api, client := newDevBackend(t, devapi.WithMaxLoginAttempts(2))
	_, err := api.AddUser("Ada", "a@b.com", "secret1", users.RoleStudent)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "wrong"})
		require.ErrorIs(t, err, errors.ErrAuthentication)
	}

	// Even the right password is refused while the limit holds.
	_, err = client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "secret1"})
	require.ErrorIs(t, err, errors.ErrRateLimited)
	require.Equal(t, "Too many attempts. Please wait a few minutes before trying again.", errors.FriendlyMessage(err))
}

func TestClient_RateLimitTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Too many login attempts. Please try again later."}`))
	}))
	defer srv.Close()

	client := authapi.New(srv.URL)
	_, err := client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, errors.ErrRateLimited)
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := authapi.New(srv.URL)
	err := client.ResendOTP(context.Background(), "a@b.com")
	require.ErrorIs(t, err, errors.ErrBackendUnavailable)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClient_BackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := authapi.New(url, authapi.WithTimeout(time.Second))
	_, err := client.Refresh(context.Background(), "rt")
	require.ErrorIs(t, err, errors.ErrBackendUnavailable)
}

func TestClient_RegisterVerifyOTP(t *testing.T) {
	api, client := newDevBackend(t, devapi.WithFixedOTP("000000"))

	err := client.Register(context.Background(), authapi.Registration{Name: "Bo", Email: "bo@b.com", Password: "Passw0rdX"})
	require.NoError(t, err)
	require.Equal(t, "000000", api.PendingOTP("bo@b.com"))

	_, err = client.VerifyOTP(context.Background(), authapi.OTPVerification{Email: "bo@b.com", OTP: "123456"})
	require.ErrorIs(t, err, errors.ErrInvalidOTP)

	resp, err := client.VerifyOTP(context.Background(), authapi.OTPVerification{Email: "bo@b.com", OTP: "000000"})
	require.NoError(t, err)
	require.Equal(t, users.RoleStudent, resp.User.Role)
	require.Equal(t, "bo@b.com", resp.User.Email)

	err = client.Register(context.Background(), authapi.Registration{Name: "Bo", Email: "bo@b.com", Password: "Passw0rdX"})
	require.ErrorIs(t, err, errors.ErrUserExists)
}

func TestClient_RegisterWeakPassword(t *testing.T) {
	_, client := newDevBackend(t)
	err := client.Register(context.Background(), authapi.Registration{Name: "Bo", Email: "bo@b.com", Password: "short"})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestClient_Refresh(t *testing.T) {
	t.Run("rotating backend", func(t *testing.T) {
		api, client := newDevBackend(t)
		_, err := api.AddUser("Ada", "a@b.com", "secret1", users.RoleStudent)
		require.NoError(t, err)
		login, err := client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "secret1"})
		require.NoError(t, err)

		refreshed, err := client.Refresh(context.Background(), login.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, refreshed.AccessToken)
		require.NotEmpty(t, refreshed.RefreshToken)
		require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

		_, err = client.Refresh(context.Background(), login.RefreshToken)
		require.ErrorIs(t, err, errors.ErrAuthentication)
	})

	t.Run("non rotating backend", func(t *testing.T) {
		api, client := newDevBackend(t, devapi.WithRefreshRotation(false))
		_, err := api.AddUser("Ada", "a@b.com", "secret1", users.RoleStudent)
		require.NoError(t, err)
		login, err := client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "secret1"})
		require.NoError(t, err)

		refreshed, err := client.Refresh(context.Background(), login.RefreshToken)
		require.NoError(t, err)
		require.Empty(t, refreshed.RefreshToken)

		_, err = client.Refresh(context.Background(), login.RefreshToken)
		require.NoError(t, err)
	})
}

func TestClient_LogoutSendsBearerAndRefreshToken(t *testing.T) {
	var (
		gotAuth string
		gotBody authapi.LogoutRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, authapi.PathLogout, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := authapi.New(srv.URL)
	err := client.Logout(context.Background(), token.Pair{AccessToken: "at", RefreshToken: "rt"})
	require.NoError(t, err)
	require.Equal(t, "Bearer at", gotAuth)
	require.Equal(t, "rt", gotBody.RefreshToken)
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"only"}`))
	}))
	defer srv.Close()

	client := authapi.New(srv.URL)
	_, err := client.Login(context.Background(), authapi.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, errors.ErrUnexpectedResponse)
}

func TestClient_MeRejectsBadToken(t *testing.T) {
	_, client := newDevBackend(t)
	_, err := client.Me(context.Background(), "not-a-token")
	require.ErrorIs(t, err, errors.ErrAuthentication)
}
