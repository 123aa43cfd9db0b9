package contentgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// Client calls the hosted content generation service. Its output is opaque
// text and image URLs; no generation logic lives here.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewClient(host, apiKey string) *Client {
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Generate(ctx context.Context, req *dto.GenerateContentRequest) (*dto.GeneratedContent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		logger.GetLogger().WithField("status", resp.StatusCode).Warn("content generation failed")
		return nil, fmt.Errorf("content provider returned status %d", resp.StatusCode)
	}

	var out dto.GeneratedContent
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ repository.IContentProvider = (*Client)(nil)
