package linkedin

// Wire types for the ugcPosts endpoint.

type ugcPostRequest struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type shareContent struct {
	ShareCommentary    textBlock    `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []shareMedia `json:"media,omitempty"`
}

type textBlock struct {
	Text string `json:"text"`
}

type shareMedia struct {
	Status      string     `json:"status"`
	OriginalURL string     `json:"originalUrl,omitempty"`
	Media       string     `json:"media,omitempty"`
	Title       *textBlock `json:"title,omitempty"`
}

type ugcPostResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Message          string `json:"message"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Status           int    `json:"status"`
}

// Token endpoint types.

type tokenRequest struct {
	GrantType    string `url:"grant_type"`
	Code         string `url:"code,omitempty"`
	RefreshToken string `url:"refresh_token,omitempty"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	ClientID     string `url:"client_id"`
	ClientSecret string `url:"client_secret"`
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type userinfoResponse struct {
	Sub string `json:"sub"`
}
