package queue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the visit snapshot when no key is configured.
const DefaultRedisKey = "carequeue:visits"

type snapshotStoreRedis struct {
	client redis.Cmdable
	key    string
}

// NewSnapshotStoreRedis stores the visit set as one JSON document under key.
func NewSnapshotStoreRedis(client redis.Cmdable, key string) SnapshotStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &snapshotStoreRedis{client: client, key: key}
}

func (r *snapshotStoreRedis) Load(ctx context.Context) ([]Visit, error) {
	raw, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", r.key)
	}
	var visits []Visit
	if err := json.Unmarshal([]byte(raw), &visits); err != nil {
		return nil, errors.Wrapf(err, "decode %s", r.key)
	}
	return visits, nil
}

func (r *snapshotStoreRedis) Save(ctx context.Context, visits []Visit) error {
	if visits == nil {
		visits = []Visit{}
	}
	data, err := json.Marshal(visits)
	if err != nil {
		return errors.Wrap(err, "encode visits")
	}
	if err := r.client.Set(ctx, r.key, string(data), 0).Err(); err != nil {
		return errors.Wrapf(err, "set %s", r.key)
	}
	return nil
}
