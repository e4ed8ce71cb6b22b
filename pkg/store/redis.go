package store

import (
	"algoexec/config"
	"algoexec/pkg/strategy"
	"algoexec/pkg/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisStore keeps one msgpack value per instance under <prefix>:state:<gid> and
// a set of known gids under <prefix>:instances.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration

	logger *log.Entry
}

func NewRedisStore(cfg *config.PersistenceConfig) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address required for %s driver", cfg.Driver)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: utils.LoadEnvWithDefault("REDIS_PASSWORD", ""),
		DB:       utils.LoadIntEnvWithDefault("REDIS_DB", cfg.RedisDB),
	})
	return NewRedisStoreWithClient(rdb, cfg.KeyPrefix, time.Duration(cfg.TtlHours)*time.Hour), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(log.Fields{"component": "store", "driver": "redis"}),
	}
}

func (s *RedisStore) stateKey(gid string) string {
	return fmt.Sprintf("%s:state:%s", s.prefix, gid)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:instances", s.prefix)
}

func (s *RedisStore) Save(ctx context.Context, state *strategy.InstanceState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.stateKey(state.Gid), data, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), state.Gid)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail to save state %s: %w", state.Gid, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, gid string) (*strategy.InstanceState, error) {
	data, err := s.rdb.Get(ctx, s.stateKey(gid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fail to load state %s: %w", gid, err)
	}
	return decode(data)
}

// List returns every stored state; gids whose value expired are pruned from the index.
func (s *RedisStore) List(ctx context.Context) ([]*strategy.InstanceState, error) {
	gids, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to list instances: %w", err)
	}

	states := make([]*strategy.InstanceState, 0, len(gids))
	var expired []any
	for _, gid := range gids {
		state, err := s.Load(ctx, gid)
		if errors.Is(err, ErrNotFound) {
			expired = append(expired, gid)
			continue
		}
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if len(expired) > 0 {
		if err := s.rdb.SRem(ctx, s.indexKey(), expired...).Err(); err != nil {
			s.logger.Warnf("fail to prune %d expired gids: %v", len(expired), err)
		}
	}
	sortByCreation(states)
	return states, nil
}

func (s *RedisStore) Delete(ctx context.Context, gid string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.stateKey(gid))
		pipe.SRem(ctx, s.indexKey(), gid)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail to delete state %s: %w", gid, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
