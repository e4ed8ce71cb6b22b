package store

import (
	"algoexec/config"
	"algoexec/pkg/strategy"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotFound = errors.New("instance state not found")

// Store persists instance state snapshots keyed by gid.
type Store interface {
	Save(ctx context.Context, state *strategy.InstanceState) error
	Load(ctx context.Context, gid string) (*strategy.InstanceState, error)
	List(ctx context.Context) ([]*strategy.InstanceState, error)
	Delete(ctx context.Context, gid string) error
	Close() error
}

func New(cfg *config.PersistenceConfig) (Store, error) {
	if cfg == nil {
		return NewMemoryStore(), nil
	}
	switch cfg.Driver {
	case config.PersistenceMemory, "":
		return NewMemoryStore(), nil
	case config.PersistenceRedis:
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown persistence driver: %s", cfg.Driver)
	}
}

func encode(state *strategy.InstanceState) ([]byte, error) {
	data, err := msgpack.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("fail to encode state %s: %w", state.Gid, err)
	}
	return data, nil
}

func decode(data []byte) (*strategy.InstanceState, error) {
	state := &strategy.InstanceState{}
	if err := msgpack.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("fail to decode state: %w", err)
	}
	return state, nil
}

// sortByCreation orders states oldest first, gid breaking ties.
func sortByCreation(states []*strategy.InstanceState) {
	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.Before(states[j].CreatedAt)
		}
		return states[i].Gid < states[j].Gid
	})
}
