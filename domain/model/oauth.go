package model

// TokenGrant is the token endpoint's response for both authorization_code
// and refresh_token exchanges.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// PublishPayload is the platform-neutral content handed to the remote
// publisher client.
type PublishPayload struct {
	AuthorAccountID string
	Commentary      string
	ImageRef        *string
	Visibility      string
}
