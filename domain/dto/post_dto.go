package dto

// CreatePostRequest creates a new draft.
type CreatePostRequest struct {
	Title    string  `json:"title" binding:"required"`
	Body     string  `json:"body" binding:"required"`
	ImageRef *string `json:"image_ref,omitempty"`
}

// GenerateContentRequest asks the content provider for draft suggestions.
type GenerateContentRequest struct {
	Topic     string `json:"topic" binding:"required"`
	Tone      string `json:"tone,omitempty"`
	WithImage bool   `json:"with_image,omitempty"`
}

// GeneratedContent is the provider's output, treated as opaque text/URL.
type GeneratedContent struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	ImageURL *string `json:"image_url,omitempty"`
}

// PublishResponse is the typed outcome of a publish request.
// AlreadyInProgressOrDone marks the idempotence guard: another publish for
// the same post is running or finished, and this call had no side effects.
type PublishResponse struct {
	PostID                  string  `json:"post_id"`
	Status                  string  `json:"status"`
	ExternalPostID          *string `json:"external_post_id,omitempty"`
	FailureKind             *string `json:"failure_kind,omitempty"`
	FailureDetail           *string `json:"failure_detail,omitempty"`
	Retryable               bool    `json:"retryable"`
	AlreadyInProgressOrDone bool    `json:"already_in_progress_or_done,omitempty"`
}

// ConnectionStatus describes the state of a platform connection.
type ConnectionStatus struct {
	Connected         bool   `json:"connected"`
	Platform          string `json:"platform"`
	PlatformAccountID string `json:"platform_account_id,omitempty"`
	Scopes            string `json:"scopes,omitempty"`
	ExpiresAt         string `json:"expires_at,omitempty"`
}
