package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scambait/honeynet/agent/contract"
)

const (
	defaultRedisKeyPrefix = "honeynet:session:"
	defaultRedisTTL       = 24 * time.Hour
	maxRedisResponseBytes = 2 << 20
)

// Snapshotter is the optional read-only lookup used by the session
// inspection endpoint. All shipped stores implement it.
type Snapshotter interface {
	Snapshot(ctx context.Context, id string) (*Session, error)
}

// RedisConfig configures the Upstash Redis REST store.
type RedisConfig struct {
	URL         string        `envconfig:"URL" split_words:"true" required:"true"`
	Token       string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL         time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
	KeyPrefix   string        `envconfig:"KEY_PREFIX" split_words:"true"`
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" split_words:"true" default:"5s"`
}

// RedisStore persists sessions in Upstash Redis via its REST API. Session
// creation uses SET..NX so two concurrent first requests cannot both
// insert. The per-session lock is in-process; see keyedLock.
type RedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
	locks      *keyedLock
}

var _ Store = (*RedisStore)(nil)
var _ Snapshotter = (*RedisStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("redis rest url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("redis rest token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	return &RedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  prefix,
		ttl:        ttl,
		locks:      newKeyedLock(cfg.LockTimeout),
	}, nil
}

func (r *RedisStore) GetOrCreate(ctx context.Context, id string, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %v", contract.ErrValidation, ErrEmptySessionID)
	}

	existing, err := r.load(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, contract.ErrSessionNotFound) {
		return nil, err
	}

	created := NewSession(id, now)
	payload, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	resp, err := r.exec(ctx, []any{"SET", r.key(id), string(payload), "NX", "EX", ttlSeconds(r.ttl)})
	if err != nil {
		return nil, err
	}
	// Null result means another request won the insert race; read theirs.
	if isRedisNull(resp.Result) {
		return r.load(ctx, id)
	}
	return created, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrValidation, err)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.exec(ctx, []any{"SET", r.key(s.ID), string(payload), "EX", ttlSeconds(r.ttl)})
	return err
}

func (r *RedisStore) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return r.locks.run(ctx, id, fn)
}

func (r *RedisStore) Snapshot(ctx context.Context, id string) (*Session, error) {
	return r.load(ctx, id)
}

func (r *RedisStore) load(ctx context.Context, id string) (*Session, error) {
	resp, err := r.exec(ctx, []any{"GET", r.key(id)})
	if err != nil {
		return nil, err
	}
	if isRedisNull(resp.Result) {
		return nil, fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
	}

	var encoded string
	if err := json.Unmarshal(resp.Result, &encoded); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(encoded), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRedisResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func isRedisNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
