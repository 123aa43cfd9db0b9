package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/servicebus"
)

var ErrNotPostAuthor = errors.New("post does not belong to user")

// A publishing row untouched this long is treated as an interrupted attempt
// and handed back to the retry sweep.
const stuckPublishingAfter = 10 * time.Minute

type IPublishUsecase interface {
	// Publish drives one post through draft/failed -> publishing ->
	// published|failed. Safe to call concurrently for the same post: exactly
	// one caller wins the publishing transition, the rest observe
	// AlreadyInProgressOrDone without side effects.
	Publish(ctx context.Context, postID, userID string) (*dto.PublishResponse, error)
	Status(ctx context.Context, postID, userID string) (*dto.PublishResponse, error)
	// ProcessRetryable re-publishes failed posts whose recorded failure kind
	// is retryable. Called from the background ticker.
	ProcessRetryable(ctx context.Context, batchSize int) error
	WithBroadcaster(fn func(post *model.Post)) IPublishUsecase
}

type publishUsecase struct {
	postRepo    repository.IPost
	tokenUC     ITokenUsecase
	publisher   repository.IPublisher
	attemptRepo repository.IPublishAttempt
	statusCache cache.IStatusCache
	events      pubsub.IPublishEvents
	notifier    servicebus.INotificationBus
	broadcaster func(post *model.Post)
}

func NewPublishUsecase(
	postRepo repository.IPost,
	tokenUC ITokenUsecase,
	publisher repository.IPublisher,
	attemptRepo repository.IPublishAttempt,
	statusCache cache.IStatusCache,
	events pubsub.IPublishEvents,
	notifier servicebus.INotificationBus,
) IPublishUsecase {
	return &publishUsecase{
		postRepo:    postRepo,
		tokenUC:     tokenUC,
		publisher:   publisher,
		attemptRepo: attemptRepo,
		statusCache: statusCache,
		events:      events,
		notifier:    notifier,
	}
}

func (u *publishUsecase) WithBroadcaster(fn func(post *model.Post)) IPublishUsecase {
	u.broadcaster = fn
	return u
}

// idempotencyKey derives a deterministic key from the post id so a retried
// submission after a crash is recognizable as a duplicate by the remote side.
func idempotencyKey(postID string) string {
	sum := sha256.Sum256([]byte("publish:" + postID))
	return hex.EncodeToString(sum[:16])
}

func newAttemptID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (u *publishUsecase) Publish(ctx context.Context, postID, userID string) (*dto.PublishResponse, error) {
	lg := logger.GetLogger().WithField("post_id", postID).WithField("user_id", userID)

	post, err := u.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, ErrNotPostAuthor
	}

	// Idempotence guard: only draft and failed posts may start publishing.
	if post.Status != model.PostStatusDraft && post.Status != model.PostStatusFailed {
		lg.WithField("status", post.Status).Debug("publish skipped, already in progress or done")
		return u.noOpResult(post), nil
	}

	won, err := u.postRepo.UpdateStatusIf(ctx, postID, post.Status, model.PostStatusPublishing, nil, nil)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another worker raced us past the transition.
		current, gErr := u.postRepo.GetByID(ctx, postID)
		if gErr != nil {
			return nil, gErr
		}
		return u.noOpResult(current), nil
	}

	attemptID := newAttemptID()
	lg = lg.WithField("attempt_id", attemptID)

	cred, err := u.tokenUC.ObtainUsable(ctx, userID, model.PlatformLinkedIn)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoCredential), errors.Is(err, ErrCredentialExpired):
			return u.fail(ctx, post, attemptID, model.FailureAuthRequired, err.Error()), nil
		case errors.Is(err, ErrRefreshTransient):
			return u.fail(ctx, post, attemptID, model.FailureTransientAuth, err.Error()), nil
		default:
			// Unexpected error (DB blip, context cancellation). Hand the row
			// back to the retry sweep instead of leaving it at publishing.
			u.release(ctx, postID, model.FailureTransientAuth, err)
			return nil, err
		}
	}

	// Crash/cancellation recovery: a previous attempt may have succeeded
	// remotely without the local write landing. Never submit twice.
	alreadyPublished, externalID, err := u.postRepo.IsExternallyPublished(ctx, postID)
	if err != nil {
		u.release(ctx, postID, model.FailureRemoteRetryable, err)
		return nil, err
	}
	if alreadyPublished {
		lg.WithField("external_post_id", externalID).Info("external post already exists, reconciling local state")
		return u.succeed(ctx, post, attemptID, externalID)
	}

	payload := assemblePayload(post, cred)
	externalID, err = u.publisher.Submit(ctx, payload, cred.AccessToken, idempotencyKey(postID))
	if err != nil {
		var re *repository.RemoteError
		if errors.As(err, &re) {
			switch re.Outcome {
			case repository.RemoteOutcomeAuthRejected:
				return u.fail(ctx, post, attemptID, model.FailureAuthRequired, re.Error()), nil
			case repository.RemoteOutcomeRetryable:
				return u.fail(ctx, post, attemptID, model.FailureRemoteRetryable, re.Error()), nil
			default:
				return u.fail(ctx, post, attemptID, model.FailureRemoteFatal, re.Error()), nil
			}
		}
		return u.fail(ctx, post, attemptID, model.FailureRemoteRetryable, err.Error()), nil
	}

	return u.succeed(ctx, post, attemptID, externalID)
}

// assemblePayload builds the platform payload: title and body concatenated,
// image attached when present, public visibility by default.
func assemblePayload(post *model.Post, cred *model.Credential) *model.PublishPayload {
	commentary := post.Title
	if post.Body != "" {
		commentary = post.Title + "\n\n" + post.Body
	}
	return &model.PublishPayload{
		AuthorAccountID: cred.PlatformAccountID,
		Commentary:      commentary,
		ImageRef:        post.ImageRef,
		Visibility:      "PUBLIC",
	}
}

func (u *publishUsecase) succeed(ctx context.Context, post *model.Post, attemptID, externalID string) (*dto.PublishResponse, error) {
	now := time.Now().UTC()
	won, err := u.postRepo.MarkPublished(ctx, post.ID, externalID, now)
	if err != nil {
		// The external post exists; the recheck reconciles it on the next
		// attempt, so the row goes back through the retry sweep.
		u.release(ctx, post.ID, model.FailureRemoteRetryable, err)
		return nil, err
	}
	if !won {
		// Someone else reconciled the row first; report whatever it holds.
		current, gErr := u.postRepo.GetByID(ctx, post.ID)
		if gErr != nil {
			return nil, gErr
		}
		return u.noOpResult(current), nil
	}

	post.Status = model.PostStatusPublished
	post.ExternalPostID = &externalID
	post.PublishedAt = &now
	post.FailureKind = nil
	post.FailureDetail = nil

	u.recordAttempt(ctx, post, attemptID, model.AttemptOutcomeSuccess, "")
	if u.events != nil {
		if err := u.events.PostPublished(ctx, post); err != nil {
			logger.GetLogger().WithField("error", err).Warn("failed emitting post.published event")
		}
	}
	res := &dto.PublishResponse{
		PostID:         post.ID,
		Status:         model.PostStatusPublished,
		ExternalPostID: &externalID,
	}
	u.finish(ctx, post, res)
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("external_post_id", externalID).
		Info("post published")
	return res, nil
}

func (u *publishUsecase) fail(ctx context.Context, post *model.Post, attemptID, kind, detail string) *dto.PublishResponse {
	won, err := u.postRepo.UpdateStatusIf(ctx, post.ID, model.PostStatusPublishing, model.PostStatusFailed, &kind, &detail)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Error("failed recording publish failure")
	} else if !won {
		logger.GetLogger().WithField("post_id", post.ID).Warn("publish failure lost the status race")
	}

	post.Status = model.PostStatusFailed
	post.FailureKind = &kind
	post.FailureDetail = &detail

	outcome := model.AttemptOutcomeFatal
	retryable := kind == model.FailureRemoteRetryable || kind == model.FailureTransientAuth
	if retryable {
		outcome = model.AttemptOutcomeRetryable
	}
	u.recordAttempt(ctx, post, attemptID, outcome, detail)

	if kind == model.FailureRemoteFatal && u.notifier != nil {
		if err := u.notifier.PublishFailed(ctx, post.ID, kind, detail); err != nil {
			logger.GetLogger().WithField("error", err).Warn("failed sending failure notification")
		}
	}

	res := &dto.PublishResponse{
		PostID:        post.ID,
		Status:        model.PostStatusFailed,
		FailureKind:   &kind,
		FailureDetail: &detail,
		Retryable:     retryable,
	}
	u.finish(ctx, post, res)
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("kind", kind).
		WithField("retryable", retryable).
		Warn("publish failed")
	return res
}

func (u *publishUsecase) finish(ctx context.Context, post *model.Post, res *dto.PublishResponse) {
	if u.statusCache != nil {
		u.statusCache.SetStatus(ctx, post.ID, res)
	}
	if u.broadcaster != nil {
		u.broadcaster(post)
	}
}

func (u *publishUsecase) recordAttempt(ctx context.Context, post *model.Post, attemptID, outcome, detail string) {
	if u.attemptRepo == nil {
		return
	}
	attempt := &model.PublishAttempt{
		AttemptID: attemptID,
		PostID:    post.ID,
		UserID:    post.AuthorID,
		Platform:  model.PlatformLinkedIn,
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := u.attemptRepo.Record(ctx, attempt); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed recording publish attempt")
	}
}

// release reverts a won publishing transition after an unexpected error. Best
// effort: the conditional update makes it a no-op when the row moved on.
func (u *publishUsecase) release(ctx context.Context, postID, kind string, cause error) {
	detail := cause.Error()
	if _, err := u.postRepo.UpdateStatusIf(ctx, postID, model.PostStatusPublishing, model.PostStatusFailed, &kind, &detail); err != nil {
		logger.GetLogger().WithField("error", err).WithField("post_id", postID).Error("failed releasing interrupted publish")
	}
}

func (u *publishUsecase) noOpResult(post *model.Post) *dto.PublishResponse {
	return &dto.PublishResponse{
		PostID:                  post.ID,
		Status:                  post.Status,
		ExternalPostID:          post.ExternalPostID,
		FailureKind:             post.FailureKind,
		FailureDetail:           post.FailureDetail,
		AlreadyInProgressOrDone: true,
	}
}

func (u *publishUsecase) Status(ctx context.Context, postID, userID string) (*dto.PublishResponse, error) {
	if u.statusCache != nil {
		if res, err := u.statusCache.GetStatus(ctx, postID); err == nil {
			return res, nil
		}
	}
	post, err := u.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, ErrNotPostAuthor
	}
	return &dto.PublishResponse{
		PostID:         post.ID,
		Status:         post.Status,
		ExternalPostID: post.ExternalPostID,
		FailureKind:    post.FailureKind,
		FailureDetail:  post.FailureDetail,
		Retryable:      post.RetryableFailure(),
	}, nil
}

func (u *publishUsecase) ProcessRetryable(ctx context.Context, batchSize int) error {
	// Reclaim rows wedged at publishing by a crash mid-attempt before
	// sweeping, so they re-enter the retryable set.
	cutoff := time.Now().Add(-stuckPublishingAfter).UTC()
	released, err := u.postRepo.ReleaseStuckPublishing(ctx, cutoff, model.FailureRemoteRetryable, "publish interrupted")
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed releasing stuck publishing posts")
	} else if released > 0 {
		logger.GetLogger().WithField("count", released).Info("released stuck publishing posts")
	}

	posts, err := u.postRepo.ListRetryable(ctx, batchSize)
	if err != nil {
		return err
	}
	for _, post := range posts {
		res, err := u.Publish(ctx, post.ID, post.AuthorID)
		if err != nil {
			logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Warn("retry publish errored")
			continue
		}
		if res.AlreadyInProgressOrDone {
			continue
		}
		logger.GetLogger().
			WithField("post_id", post.ID).
			WithField("status", res.Status).
			Info("retry publish processed")
	}
	return nil
}
