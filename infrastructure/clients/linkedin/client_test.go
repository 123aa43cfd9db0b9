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

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

func testPayload() *model.PublishPayload {
	return &model.PublishPayload{
		AuthorAccountID: "acct-1",
		Commentary:      "Launch day\n\nWe shipped.",
		Visibility:      "PUBLIC",
	}
}

func TestClient_Submit_Created(t *testing.T) {
	var gotReq ugcPostRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "Bearer tok-usable", r.Header.Get("Authorization"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:ugcPost:42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	id, err := client.Submit(context.Background(), testPayload(), "tok-usable", "key-1")

	require.NoError(t, err)
	assert.Equal(t, "urn:li:ugcPost:42", id)
	assert.Equal(t, "urn:li:person:acct-1", gotReq.Author)
	assert.Equal(t, "PUBLISHED", gotReq.LifecycleState)
	content := gotReq.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "Launch day\n\nWe shipped.", content.ShareCommentary.Text)
	assert.Equal(t, "NONE", content.ShareMediaCategory)
	assert.Equal(t, "PUBLIC", gotReq.Visibility["com.linkedin.ugc.MemberNetworkVisibility"])
}

func TestClient_Submit_IDFromHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RestLi-Id", "urn:li:ugcPost:77")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	id, err := client.Submit(context.Background(), testPayload(), "tok", "key-1")

	require.NoError(t, err)
	assert.Equal(t, "urn:li:ugcPost:77", id)
}

func TestClient_Submit_ImageAttachesMedia(t *testing.T) {
	var gotReq ugcPostRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:ugcPost:42"})
	}))
	defer server.Close()

	imageRef := "urn:li:digitalmediaAsset:abc"
	payload := testPayload()
	payload.ImageRef = &imageRef

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Submit(context.Background(), payload, "tok", "key-1")

	require.NoError(t, err)
	content := gotReq.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "IMAGE", content.ShareMediaCategory)
	require.Len(t, content.Media, 1)
	assert.Equal(t, imageRef, content.Media[0].Media)
}

func TestClient_Submit_Classification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		outcome string
	}{
		{"unauthorized", http.StatusUnauthorized, repository.RemoteOutcomeAuthRejected},
		{"forbidden", http.StatusForbidden, repository.RemoteOutcomeAuthRejected},
		{"timeout", http.StatusRequestTimeout, repository.RemoteOutcomeRetryable},
		{"rate limited", http.StatusTooManyRequests, repository.RemoteOutcomeRetryable},
		{"server error", http.StatusInternalServerError, repository.RemoteOutcomeRetryable},
		{"bad gateway", http.StatusBadGateway, repository.RemoteOutcomeRetryable},
		{"bad request", http.StatusBadRequest, repository.RemoteOutcomeFatal},
		{"unprocessable", http.StatusUnprocessableEntity, repository.RemoteOutcomeFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			_, err := client.Submit(context.Background(), testPayload(), "tok", "key-1")

			var re *repository.RemoteError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, tt.outcome, re.Outcome)
		})
	}
}

func TestClient_Submit_RejectionCarriesAPIErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(apiError{Message: "Duplicate post", ServiceErrorCode: 105, Status: 422})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Submit(context.Background(), testPayload(), "tok", "key-1")

	var re *repository.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, repository.RemoteOutcomeFatal, re.Outcome)
	assert.Equal(t, "Duplicate post", re.Body)
}

func TestClient_Submit_NetworkErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := NewClient(server.URL, time.Second)
	_, err := client.Submit(context.Background(), testPayload(), "tok", "key-1")

	var re *repository.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.StatusCode)
	assert.Equal(t, repository.RemoteOutcomeRetryable, re.Outcome)
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "AQXdSP8p...", redactToken("AQXdSP8pZq9vRstuvwx"))
	assert.Equal(t, "********", redactToken("short"))
}
