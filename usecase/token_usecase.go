package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// Token lifecycle error taxonomy. ErrNoCredential and ErrCredentialExpired
// need a human to re-run the authorization flow; ErrRefreshTransient is
// retryable with backoff.
var (
	ErrNoCredential      = errors.New("no credential for platform")
	ErrCredentialExpired = errors.New("credential expired, re-authorization required")
	ErrRefreshTransient  = errors.New("token refresh temporarily unavailable")
)

type ITokenUsecase interface {
	// ObtainUsable returns a credential guaranteed fresh for the next remote
	// call, refreshing proactively when inside the safety margin.
	ObtainUsable(ctx context.Context, userID, platform string) (*model.Credential, error)
}

type tokenUsecase struct {
	credRepo     repository.ICredential
	exchanger    repository.ITokenExchanger
	safetyMargin time.Duration
	now          func() time.Time
}

func NewTokenUsecase(credRepo repository.ICredential, exchanger repository.ITokenExchanger, safetyMargin time.Duration) ITokenUsecase {
	if safetyMargin <= 0 {
		safetyMargin = 5 * time.Minute
	}
	return &tokenUsecase{
		credRepo:     credRepo,
		exchanger:    exchanger,
		safetyMargin: safetyMargin,
		now:          time.Now,
	}
}

func (u *tokenUsecase) ObtainUsable(ctx context.Context, userID, platform string) (*model.Credential, error) {
	cred, err := u.credRepo.GetActive(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrNoCredential
		}
		return nil, err
	}

	if cred.FreshFor(u.now(), u.safetyMargin) {
		return cred, nil
	}

	if cred.RefreshToken == "" {
		// No refresh capability; the token just ages out.
		if err := u.credRepo.Deactivate(ctx, userID, platform); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed deactivating expired credential")
		}
		return nil, ErrCredentialExpired
	}

	grant, err := u.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		var re *repository.RefreshError
		if errors.As(err, &re) && !re.Transient {
			// Grant rejected: token revoked or refresh window closed.
			if dErr := u.credRepo.Deactivate(ctx, userID, platform); dErr != nil {
				logger.GetLogger().WithField("error", dErr).Error("failed deactivating rejected credential")
			}
			return nil, ErrCredentialExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshTransient, err)
	}

	now := u.now().UTC()
	refreshed := &model.Credential{
		UserID:            cred.UserID,
		Platform:          cred.Platform,
		PlatformAccountID: cred.PlatformAccountID,
		AccessToken:       grant.AccessToken,
		RefreshToken:      grant.RefreshToken,
		Scopes:            grant.Scope,
		IssuedAt:          now,
		ExpiresAt:         now.Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}
	if refreshed.Scopes == "" {
		refreshed.Scopes = cred.Scopes
	}
	if err := u.credRepo.Upsert(ctx, refreshed); err != nil {
		return nil, fmt.Errorf("%w: persisting refreshed credential: %v", ErrRefreshTransient, err)
	}
	logger.GetLogger().
		WithField("user_id", userID).
		WithField("platform", platform).
		WithField("expires_at", refreshed.ExpiresAt).
		Info("credential refreshed")
	return refreshed, nil
}
