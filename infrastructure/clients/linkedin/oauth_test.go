package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/repository"
)

func newTestExchanger(authURL, apiURL string) *TokenExchanger {
	return NewTokenExchanger(authURL, apiURL, "client-id", "client-secret", "https://app.example.com/callback", 5*time.Second)
}

func TestTokenExchanger_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/v2/accessToken", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "auth-code-1", r.PostForm.Get("code"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://app.example.com/callback", r.PostForm.Get("redirect_uri"))

		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  "tok-new",
			ExpiresIn:    5184000,
			RefreshToken: "refresh-new",
			Scope:        "openid,profile,w_member_social",
		})
	}))
	defer server.Close()

	grant, err := newTestExchanger(server.URL, server.URL).Exchange(context.Background(), "auth-code-1")

	require.NoError(t, err)
	assert.Equal(t, "tok-new", grant.AccessToken)
	assert.Equal(t, "refresh-new", grant.RefreshToken)
	assert.Equal(t, 5184000, grant.ExpiresIn)
}

func TestTokenExchanger_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-old", r.PostForm.Get("refresh_token"))
		assert.Empty(t, r.PostForm.Get("code"))

		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-refreshed", ExpiresIn: 3600})
	}))
	defer server.Close()

	grant, err := newTestExchanger(server.URL, server.URL).Refresh(context.Background(), "refresh-old")

	require.NoError(t, err)
	assert.Equal(t, "tok-refreshed", grant.AccessToken)
}

func TestTokenExchanger_Refresh_InvalidGrantNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(tokenError{Error: "invalid_grant", ErrorDescription: "refresh token revoked"})
	}))
	defer server.Close()

	grant, err := newTestExchanger(server.URL, server.URL).Refresh(context.Background(), "refresh-revoked")

	require.Nil(t, grant)
	var re *repository.RefreshError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "invalid_grant", re.Code)
	assert.False(t, re.Transient)
}

func TestTokenExchanger_Refresh_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestExchanger(server.URL, server.URL).Refresh(context.Background(), "refresh-old")

	var re *repository.RefreshError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
	assert.True(t, re.Transient)
}

func TestTokenExchanger_Refresh_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	_, err := newTestExchanger(server.URL, server.URL).Refresh(context.Background(), "refresh-old")

	var re *repository.RefreshError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "network_error", re.Code)
	assert.True(t, re.Transient)
}

func TestTokenExchanger_AccountID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/userinfo", r.URL.Path)
		assert.Equal(t, "Bearer tok-usable", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(userinfoResponse{Sub: "acct-1"})
	}))
	defer server.Close()

	accountID, err := newTestExchanger(server.URL, server.URL).AccountID(context.Background(), "tok-usable")

	require.NoError(t, err)
	assert.Equal(t, "acct-1", accountID)
}
