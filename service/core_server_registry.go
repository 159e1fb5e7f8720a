package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// coreServersHashKey: field 为服务器 key，value 为 {"ip":"...","port":...}
const coreServersHashKey = "core-servers"

var ErrRedisNotInitialized = errors.New("redis client is not initialized")
var ErrCoreServerKeyRequired = errors.New("core server key is required")
var ErrCoreServerNotFound = errors.New("core server not found")

type CoreServer struct {
	Key  string `json:"key"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// BaseURL 训练后端的 HTTP 地址
func (s CoreServer) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", s.IP, s.Port)
}

type coreServerValue struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// CoreServerRegistry 读取 redis 中登记的训练服务器。
type CoreServerRegistry struct {
	client *redis.Client
}

func NewCoreServerRegistry(client *redis.Client) *CoreServerRegistry {
	return &CoreServerRegistry{client: client}
}

func (r *CoreServerRegistry) List(ctx context.Context) ([]CoreServer, error) {
	if r == nil || r.client == nil {
		return nil, ErrRedisNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rawMap, err := r.client.HGetAll(ctx, coreServersHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s failed: %w", coreServersHashKey, err)
	}

	keys := make([]string, 0, len(rawMap))
	for key := range rawMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]CoreServer, 0, len(keys))
	for _, key := range keys {
		raw := strings.TrimSpace(rawMap[key])
		if raw == "" {
			continue
		}

		var value coreServerValue
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("parse core server failed (key=%s): %w", key, err)
		}

		result = append(result, CoreServer{
			Key:  key,
			IP:   value.IP,
			Port: value.Port,
		})
	}

	return result, nil
}

func (r *CoreServerRegistry) Get(ctx context.Context, key string) (CoreServer, error) {
	if r == nil || r.client == nil {
		return CoreServer{}, ErrRedisNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return CoreServer{}, ErrCoreServerKeyRequired
	}

	raw, err := r.client.HGet(ctx, coreServersHashKey, trimmedKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return CoreServer{}, ErrCoreServerNotFound
		}
		return CoreServer{}, fmt.Errorf("hget %s failed (key=%s): %w", coreServersHashKey, trimmedKey, err)
	}

	payload := strings.TrimSpace(raw)
	if payload == "" {
		return CoreServer{}, ErrCoreServerNotFound
	}

	var value coreServerValue
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return CoreServer{}, fmt.Errorf("parse core server failed (key=%s): %w", trimmedKey, err)
	}

	return CoreServer{
		Key:  trimmedKey,
		IP:   value.IP,
		Port: value.Port,
	}, nil
}

// Register 写入/覆盖一台训练服务器。
func (r *CoreServerRegistry) Register(ctx context.Context, server CoreServer) error {
	if r == nil || r.client == nil {
		return ErrRedisNotInitialized
	}
	key := strings.TrimSpace(server.Key)
	if key == "" {
		return ErrCoreServerKeyRequired
	}

	payload, err := json.Marshal(coreServerValue{IP: server.IP, Port: server.Port})
	if err != nil {
		return fmt.Errorf("marshal core server failed (key=%s): %w", key, err)
	}
	if err := r.client.HSet(ctx, coreServersHashKey, key, string(payload)).Err(); err != nil {
		return fmt.Errorf("hset %s failed (key=%s): %w", coreServersHashKey, key, err)
	}
	return nil
}

// ResolveBackendURL 优先使用显式配置的地址，否则按 key 查 core server。
func ResolveBackendURL(ctx context.Context, registry *CoreServerRegistry, baseURL, coreServerKey string) (string, error) {
	if u := strings.TrimSpace(baseURL); u != "" {
		return u, nil
	}
	if strings.TrimSpace(coreServerKey) == "" {
		return "", ErrBackendNotConfigured
	}
	server, err := registry.Get(ctx, coreServerKey)
	if err != nil {
		return "", fmt.Errorf("resolve training backend failed: %w", err)
	}
	return server.BaseURL(), nil
}
