package memstore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = 5 * time.Minute

// StateStore 基于进程内缓存的一次性 state 存储
// Redis 不可用时作为 OAuth state 的降级方案，仅适用于单实例部署
type StateStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewStateStore 创建进程内 state 存储，defaultTTL 为未显式指定时的过期时间
func NewStateStore(defaultTTL time.Duration) *StateStore {
	return &StateStore{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// SaveState 保存 state
func (s *StateStore) SaveState(_ context.Context, state string, ttl time.Duration) error {
	s.cache.Set(state, struct{}{}, ttl)
	return nil
}

// ConsumeState 校验并删除 state；同一 state 只能被消费一次
func (s *StateStore) ConsumeState(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.cache.Get(state); !found {
		return false, nil
	}
	s.cache.Delete(state)
	return true, nil
}

// Len 当前未过期的 state 数量
func (s *StateStore) Len() int {
	return s.cache.ItemCount()
}
