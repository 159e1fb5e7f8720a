package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"github.com/redis/go-redis/v9"
)

// ComparisonStore 保存每个任务的验证页状态。实现需并发安全。
type ComparisonStore interface {
	Load(ctx context.Context, taskID string) (entity.ComparisonSession, bool, error)
	Save(ctx context.Context, session entity.ComparisonSession) error
	Delete(ctx context.Context, taskID string) error
}

type MemoryComparisonStore struct {
	mu       sync.RWMutex
	sessions map[string]entity.ComparisonSession
}

func NewMemoryComparisonStore() *MemoryComparisonStore {
	return &MemoryComparisonStore{sessions: make(map[string]entity.ComparisonSession)}
}

func (s *MemoryComparisonStore) Load(_ context.Context, taskID string) (entity.ComparisonSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[taskID]
	return session, ok, nil
}

func (s *MemoryComparisonStore) Save(_ context.Context, session entity.ComparisonSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.TaskID] = session
	return nil
}

func (s *MemoryComparisonStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, taskID)
	return nil
}

func comparisonKey(taskID string) string {
	return fmt.Sprintf("comparison:%s", taskID)
}

type RedisComparisonStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisComparisonStore(client *redis.Client, ttl time.Duration) *RedisComparisonStore {
	return &RedisComparisonStore{client: client, ttl: ttl}
}

func (s *RedisComparisonStore) Load(ctx context.Context, taskID string) (entity.ComparisonSession, bool, error) {
	if s.client == nil {
		return entity.ComparisonSession{}, false, ErrRedisNotInitialized
	}
	raw, err := s.client.Get(ctx, comparisonKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.ComparisonSession{}, false, nil
	}
	if err != nil {
		return entity.ComparisonSession{}, false, fmt.Errorf("get comparison session failed (task=%s): %w", taskID, err)
	}

	var session entity.ComparisonSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return entity.ComparisonSession{}, false, fmt.Errorf("parse comparison session failed (task=%s): %w", taskID, err)
	}
	return session, true, nil
}

func (s *RedisComparisonStore) Save(ctx context.Context, session entity.ComparisonSession) error {
	if s.client == nil {
		return ErrRedisNotInitialized
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal comparison session failed (task=%s): %w", session.TaskID, err)
	}
	if err := s.client.Set(ctx, comparisonKey(session.TaskID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set comparison session failed (task=%s): %w", session.TaskID, err)
	}
	return nil
}

func (s *RedisComparisonStore) Delete(ctx context.Context, taskID string) error {
	if s.client == nil {
		return ErrRedisNotInitialized
	}
	if err := s.client.Del(ctx, comparisonKey(taskID)).Err(); err != nil {
		return fmt.Errorf("delete comparison session failed (task=%s): %w", taskID, err)
	}
	return nil
}

var (
	_ ComparisonStore = (*MemoryComparisonStore)(nil)
	_ ComparisonStore = (*RedisComparisonStore)(nil)
)
