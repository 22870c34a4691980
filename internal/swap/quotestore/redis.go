package quotestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/model"
)

const redisKeyPrefix = "scout:quote:"

// Redis stores quotes in Redis with the validity window as the key TTL, so
// expiry and deletion are handled by the server. Consume uses GETDEL for the
// atomic get-and-delete.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Put(ctx context.Context, quote *model.Quote, ttl time.Duration) error {
	raw, err := json.Marshal(quote)
	if err != nil {
		return scouterr.Wrap(scouterr.KindInternal, "encode quote", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+quote.QuoteID, raw, ttl).Err(); err != nil {
		return scouterr.Wrap(scouterr.KindUnavailable, "store quote", err)
	}
	return nil
}

// Consume returns NotFound for both never-issued and TTL-expired ids; Redis
// does not distinguish the two once the key is gone.
func (r *Redis) Consume(ctx context.Context, quoteID string) (*model.Quote, error) {
	raw, err := r.client.GetDel(ctx, redisKeyPrefix+quoteID).Bytes()
	if err == redis.Nil {
		return nil, scouterr.Newf(scouterr.KindNotFound, "unknown or expired quote %q", quoteID)
	}
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindUnavailable, "consume quote", err)
	}
	var quote model.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, scouterr.Wrap(scouterr.KindInternal, "decode stored quote", err)
	}
	return &quote, nil
}
