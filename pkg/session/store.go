package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Tokens is the persisted half of a session. The user is always refetched.
type Tokens struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// TokenStore persists a token pair between runs. Load returns nil, nil when
// nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*Tokens, error)
	Save(ctx context.Context, tokens *Tokens) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil, nil
	}
	copied := *s.tokens
	return &copied, nil
}

func (s *MemoryStore) Save(_ context.Context, tokens *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tokens
	s.tokens = &copied
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}

// FileStore keeps the pair in a 0600 JSON file, used by the admin console.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath is ~/.tourdesk/session.json.
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".tourdesk", "session.json"), nil
}

func (s *FileStore) Load(context.Context) (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if tokens.Refresh == "" && tokens.Access == "" {
		return nil, nil
	}
	return &tokens, nil
}

func (s *FileStore) Save(_ context.Context, tokens *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// RedisStore keeps the pair under <prefix>access_token and
// <prefix>refresh_token so several consoles can share one login.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context) (*Tokens, error) {
	values, err := s.client.MGet(ctx, s.prefix+KeyAccessToken, s.prefix+KeyRefreshToken).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var tokens Tokens
	if v, ok := values[0].(string); ok {
		tokens.Access = v
	}
	if v, ok := values[1].(string); ok {
		tokens.Refresh = v
	}
	if tokens.Access == "" && tokens.Refresh == "" {
		return nil, nil
	}
	return &tokens, nil
}

func (s *RedisStore) Save(ctx context.Context, tokens *Tokens) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+KeyAccessToken, tokens.Access, 0)
		pipe.Set(ctx, s.prefix+KeyRefreshToken, tokens.Refresh, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.prefix+KeyAccessToken, s.prefix+KeyRefreshToken).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
