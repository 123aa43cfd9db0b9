package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"social-publisher/domain/dto"

	"github.com/redis/go-redis/v9"
)

const statusTTL = 10 * time.Minute

var ErrCacheMiss = errors.New("cache miss")

type IStatusCache interface {
	SetStatus(ctx context.Context, postID string, res *dto.PublishResponse)
	GetStatus(ctx context.Context, postID string) (*dto.PublishResponse, error)
}

// StatusCache keeps the last publish result per post so status polling does
// not hit the database. Nil-safe when Redis is down.
type StatusCache struct{ client *redis.Client }

func NewStatusCache(client *redis.Client) IStatusCache { return &StatusCache{client: client} }

func (c *StatusCache) key(postID string) string { return "publish:status:" + postID }

func (c *StatusCache) SetStatus(ctx context.Context, postID string, res *dto.PublishResponse) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(postID), data, statusTTL).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, postID string) (*dto.PublishResponse, error) {
	if c.client == nil {
		return nil, ErrCacheMiss
	}
	data, err := c.client.Get(ctx, c.key(postID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var res dto.PublishResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
