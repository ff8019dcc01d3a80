package reconcile

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/saasbilling/pkg/redis"
)

const dedupePrefix = "billing:webhook:event:"

// NewRedisDeduper remembers applied event ids in redis for ttl.
func NewRedisDeduper(client goredis.UniversalClient, ttl time.Duration) Deduper {
	return redis.NewMarker(client, dedupePrefix, ttl)
}
