package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// Client submits UGC posts to the LinkedIn REST API. One HTTP call per
// Submit, no internal retries; the orchestrator owns retry policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// redactToken keeps a short prefix for log correlation. The full bearer
// token must never reach a log line.
func redactToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "..."
}

func buildUGCPost(payload *model.PublishPayload) *ugcPostRequest {
	visibility := payload.Visibility
	if visibility == "" {
		visibility = "PUBLIC"
	}
	content := shareContent{
		ShareCommentary:    textBlock{Text: payload.Commentary},
		ShareMediaCategory: "NONE",
	}
	if payload.ImageRef != nil && *payload.ImageRef != "" {
		content.ShareMediaCategory = "IMAGE"
		content.Media = []shareMedia{{Status: "READY", Media: *payload.ImageRef}}
	}
	return &ugcPostRequest{
		Author:         fmt.Sprintf("urn:li:person:%s", payload.AuthorAccountID),
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": content,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": visibility,
		},
	}
}

// Submit posts the payload and returns the created UGC post URN. Failures
// come back as *repository.RemoteError carrying the outcome class.
func (c *Client) Submit(ctx context.Context, payload *model.PublishPayload, accessToken, idempotencyKey string) (string, error) {
	body, err := json.Marshal(buildUGCPost(payload))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	// LinkedIn does not honor idempotency keys on ugcPosts; sent anyway for
	// proxies and request tracing. The real duplicate guard is the
	// orchestrator's external-id recheck.
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	lg := logger.GetLogger().
		WithField("token", redactToken(accessToken)).
		WithField("idempotency_key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		lg.WithField("error", err).Warn("ugcPosts request failed")
		return "", &repository.RemoteError{StatusCode: 0, Outcome: repository.RemoteOutcomeRetryable, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		var out ugcPostResponse
		if err := json.Unmarshal(respBody, &out); err == nil && out.ID != "" {
			return out.ID, nil
		}
		if id := resp.Header.Get("X-RestLi-Id"); id != "" {
			return id, nil
		}
		return "", &repository.RemoteError{
			StatusCode: resp.StatusCode,
			Outcome:    repository.RemoteOutcomeFatal,
			Body:       "created but no post id in response",
		}
	}

	outcome := classifyStatus(resp.StatusCode)
	// Rejections carry a structured body; keep the message rather than the
	// raw JSON when it parses.
	detail := string(respBody)
	var apiErr apiError
	if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
		detail = apiErr.Message
	}
	lg.WithField("status", resp.StatusCode).WithField("outcome", outcome).Warn("ugcPosts rejected")
	return "", &repository.RemoteError{StatusCode: resp.StatusCode, Outcome: outcome, Body: detail}
}

func classifyStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return repository.RemoteOutcomeAuthRejected
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return repository.RemoteOutcomeRetryable
	default:
		return repository.RemoteOutcomeFatal
	}
}

var _ repository.IPublisher = (*Client)(nil)
