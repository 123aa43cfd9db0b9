package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/configuration"
)

// Mock implementations

type MockCredentialRepo struct {
	mock.Mock
}

func (m *MockCredentialRepo) GetActive(ctx context.Context, userID, platform string) (*model.Credential, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepo) Upsert(ctx context.Context, cred *model.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepo) Deactivate(ctx context.Context, userID, platform string) error {
	args := m.Called(ctx, userID, platform)
	return args.Error(0)
}

type MockTokenExchanger struct {
	mock.Mock
}

func (m *MockTokenExchanger) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

func (m *MockTokenExchanger) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

func (m *MockTokenExchanger) AccountID(ctx context.Context, accessToken string) (string, error) {
	args := m.Called(ctx, accessToken)
	return args.String(0), args.Error(1)
}

func setupLinkedInConfig() {
	configuration.C.LinkedIn = configuration.LinkedIn{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/auth/linkedin/callback",
		Scopes:       []string{"openid", "w_member_social"},
		AuthBaseURL:  "https://www.linkedin.com",
	}
}

// The auth URL is requested with a bearer token but the callback arrives on a
// bare browser redirect, so the state nonce is what ties the stored credential
// to the signed-in user.
func TestLinkedInOAuthHandler_ConnectFlowBindsAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupLinkedInConfig()

	credRepo := new(MockCredentialRepo)
	exchanger := new(MockTokenExchanger)
	h := NewLinkedInOAuthHandler(credRepo, exchanger)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/linkedin/auth-url", nil)
	c.Set("user_id", "42")
	h.GetAuthURL(c)
	require.Equal(t, http.StatusOK, w.Code)

	var authRes struct {
		AuthURL string `json:"auth_url"`
		State   string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authRes))
	require.NotEmpty(t, authRes.State)
	assert.Contains(t, authRes.AuthURL, "state="+authRes.State)

	exchanger.On("Exchange", mock.Anything, "authcode").
		Return(&model.TokenGrant{AccessToken: "tok", RefreshToken: "ref", ExpiresIn: 3600, Scope: "w_member_social"}, nil).
		Once()
	exchanger.On("AccountID", mock.Anything, "tok").Return("acct-1", nil).Once()
	// The credential lands under the user that requested the auth URL.
	credRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(cred *model.Credential) bool {
		return cred.UserID == "42" && cred.Platform == model.PlatformLinkedIn && cred.PlatformAccountID == "acct-1"
	})).Return(nil).Once()

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=authcode&state="+authRes.State, nil)
	h.Callback(c2)

	require.Equal(t, http.StatusOK, w2.Code)
	credRepo.AssertExpectations(t)
	exchanger.AssertExpectations(t)
}

func TestLinkedInOAuthHandler_GetAuthURL_RequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupLinkedInConfig()

	h := NewLinkedInOAuthHandler(new(MockCredentialRepo), new(MockTokenExchanger))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/linkedin/auth-url", nil)
	h.GetAuthURL(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLinkedInOAuthHandler_Callback_RejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupLinkedInConfig()

	credRepo := new(MockCredentialRepo)
	exchanger := new(MockTokenExchanger)
	h := NewLinkedInOAuthHandler(credRepo, exchanger)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=authcode&state=forged", nil)
	h.Callback(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	exchanger.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
	credRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
