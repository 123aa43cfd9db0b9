package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

type ILinkedInOAuthHandler interface {
	GetAuthURL(c *gin.Context)
	Callback(c *gin.Context)
	Status(c *gin.Context)
	Disconnect(c *gin.Context)
}

// oauthState binds a pending authorization to the user that requested it. The
// browser redirect from LinkedIn arrives without a bearer token, so the state
// nonce is what carries the user id into the callback.
type oauthState struct {
	userID  string
	expires time.Time
}

type linkedInOAuthHandler struct {
	credRepo  repository.ICredential
	exchanger repository.ITokenExchanger
	stateMu   sync.Mutex
	states    map[string]oauthState
}

func NewLinkedInOAuthHandler(credRepo repository.ICredential, exchanger repository.ITokenExchanger) ILinkedInOAuthHandler {
	return &linkedInOAuthHandler{
		credRepo:  credRepo,
		exchanger: exchanger,
		states:    map[string]oauthState{},
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func linkedInOAuthConfig() *oauth2.Config {
	conf := configuration.C.LinkedIn
	return &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURI,
		Scopes:       conf.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  conf.AuthBaseURL + "/oauth/v2/authorization",
			TokenURL: conf.AuthBaseURL + "/oauth/v2/accessToken",
		},
	}
}

// GetAuthURL builds the LinkedIn authorization URL (user must approve in
// browser). Served behind the auth middleware so the state can record which
// user is connecting.
func (h *linkedInOAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.LinkedIn
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "linkedin oauth not configured"})
		return
	}
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	state := randomState()
	// store state with 10 minute expiry
	h.stateMu.Lock()
	h.states[state] = oauthState{userID: userID, expires: time.Now().Add(10 * time.Minute)}
	h.stateMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"auth_url": linkedInOAuthConfig().AuthCodeURL(state), "state": state})
}

// Callback exchanges the authorization code, resolves the member id and stores
// the credential. Storing supersedes any previous active credential for the
// user, so reconnecting never leaves two live tokens behind.
func (h *linkedInOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	h.stateMu.Lock()
	pending, ok := h.states[state]
	if ok && time.Now().After(pending.expires) { // expired
		ok = false
	}
	if ok {
		delete(h.states, state)
	}
	h.stateMu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}
	// The credential belongs to whoever requested the auth URL.
	userID := pending.userID

	grant, err := h.exchanger.Exchange(c.Request.Context(), code)
	if err != nil {
		lg.WithField("error", err).Error("linkedin token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	accountID, err := h.exchanger.AccountID(c.Request.Context(), grant.AccessToken)
	if err != nil {
		lg.WithField("error", err).Error("linkedin userinfo fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "userinfo_failed"})
		return
	}

	now := time.Now().UTC()
	cred := &model.Credential{
		UserID:            userID,
		Platform:          model.PlatformLinkedIn,
		PlatformAccountID: accountID,
		AccessToken:       grant.AccessToken,
		RefreshToken:      grant.RefreshToken,
		Scopes:            grant.Scope,
		IssuedAt:          now,
		ExpiresAt:         now.Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
	if err := h.credRepo.Upsert(c.Request.Context(), cred); err != nil {
		lg.WithField("error", err).Error("failed to store linkedin credential")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_credential_failed"})
		return
	}

	if c.Query("frontend") == "1" {
		c.Header("Content-Type", "text/html; charset=utf-8")
		_, _ = c.Writer.Write([]byte(fmt.Sprintf(`<!DOCTYPE html><html><head><title>LinkedIn Connected</title></head><body><script>if (window.opener){window.opener.postMessage({source:'linkedin-oauth',connected:true,account_id:%q},'*');window.close();}else{document.write('LinkedIn connected');}</script></body></html>`, accountID)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "account_id": accountID})
}

// Status reports whether an active LinkedIn credential is stored. Token values
// never leave the server.
func (h *linkedInOAuthHandler) Status(c *gin.Context) {
	userID := c.GetString("user_id")
	cred, err := h.credRepo.GetActive(c.Request.Context(), userID, model.PlatformLinkedIn)
	if err != nil {
		if !errors.Is(err, repository.ErrCredentialNotFound) {
			logger.GetLogger().WithField("error", err).Error("Error while fetching credential")
		}
		c.JSON(http.StatusOK, dto.ConnectionStatus{Connected: false, Platform: model.PlatformLinkedIn})
		return
	}
	c.JSON(http.StatusOK, dto.ConnectionStatus{
		Connected:         true,
		Platform:          model.PlatformLinkedIn,
		PlatformAccountID: cred.PlatformAccountID,
		Scopes:            cred.Scopes,
		ExpiresAt:         cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *linkedInOAuthHandler) Disconnect(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.credRepo.Deactivate(c.Request.Context(), userID, model.PlatformLinkedIn); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while deactivating credential")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disconnect_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}
