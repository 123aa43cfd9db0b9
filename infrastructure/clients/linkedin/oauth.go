package linkedin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// TokenExchanger talks to LinkedIn's OAuth token endpoint for both the
// initial code exchange and refreshes.
type TokenExchanger struct {
	authBaseURL  string
	apiBaseURL   string
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func NewTokenExchanger(authBaseURL, apiBaseURL, clientID, clientSecret, redirectURI string, timeout time.Duration) *TokenExchanger {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &TokenExchanger{
		authBaseURL:  authBaseURL,
		apiBaseURL:   apiBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (t *TokenExchanger) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	return t.token(ctx, tokenRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  t.redirectURI,
		ClientID:     t.clientID,
		ClientSecret: t.clientSecret,
	})
}

func (t *TokenExchanger) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	return t.token(ctx, tokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
		ClientID:     t.clientID,
		ClientSecret: t.clientSecret,
	})
}

func (t *TokenExchanger) token(ctx context.Context, reqBody tokenRequest) (*model.TokenGrant, error) {
	form, err := query.Values(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.authBaseURL+"/oauth/v2/accessToken", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// Network failure: endpoint unreachable, retryable with backoff.
		return nil, &repository.RefreshError{StatusCode: 0, Code: "network_error", Transient: true}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		var te tokenError
		_ = json.Unmarshal(body, &te)
		transient := resp.StatusCode >= 500
		if te.Error == "invalid_grant" {
			transient = false
		}
		logger.GetLogger().
			WithField("status", resp.StatusCode).
			WithField("code", te.Error).
			Warn("token exchange failed")
		return nil, &repository.RefreshError{StatusCode: resp.StatusCode, Code: te.Error, Transient: transient}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, err
	}
	return &model.TokenGrant{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
		Scope:        tr.Scope,
	}, nil
}

// AccountID resolves the member id for the token via the userinfo endpoint.
func (t *TokenExchanger) AccountID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiBaseURL+"/v2/userinfo", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return "", &repository.RemoteError{StatusCode: resp.StatusCode, Outcome: classifyStatus(resp.StatusCode), Body: string(body)}
	}
	var ui userinfoResponse
	if err := json.Unmarshal(body, &ui); err != nil {
		return "", err
	}
	return ui.Sub, nil
}

var _ repository.ITokenExchanger = (*TokenExchanger)(nil)
