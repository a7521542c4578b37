package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

const (
	IdempotencyHeader = "Idempotency-Key"

	// DefaultIdempotencyTTL bounds how long a submission can be replayed.
	DefaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyKey scopes a caller-chosen key to one user and one endpoint.
type IdempotencyKey struct {
	TenantID string
	UserID   string
	Endpoint string
	Key      string
}

func (k IdempotencyKey) String() string {
	return k.TenantID + "|" + k.UserID + "|" + k.Endpoint + "|" + k.Key
}

// IdempotencyBackend stores the response of a request under the caller's key
// so a retried submission replays instead of running twice. A key reused with
// a different payload is a conflict.
type IdempotencyBackend interface {
	Check(ctx context.Context, key IdempotencyKey, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, key IdempotencyKey, requestHash string, response json.RawMessage) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// IdempotencyStore keeps keys in Postgres. Rows older than TTL are ignored and
// overwritten.
type IdempotencyStore struct {
	db  *pgxpool.Pool
	TTL time.Duration
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db, TTL: DefaultIdempotencyTTL}
}

func (s *IdempotencyStore) Check(ctx context.Context, key IdempotencyKey, requestHash string) (json.RawMessage, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}
	var storedHash string
	var stored json.RawMessage
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE tenant_id = $1 AND user_id = $2 AND key = $3 AND endpoint = $4
      AND created_at > now() - make_interval(secs => $5)
  `, key.TenantID, key.UserID, key.Key, key.Endpoint, s.TTL.Seconds()).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key IdempotencyKey, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (tenant_id, user_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (tenant_id, user_id, key, endpoint)
    DO UPDATE SET request_hash = EXCLUDED.request_hash,
                  response_json = EXCLUDED.response_json,
                  created_at = now()
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
       OR idempotency_keys.created_at <= now() - make_interval(secs => $7)
  `, key.TenantID, key.UserID, key.Key, key.Endpoint, requestHash, response, s.TTL.Seconds())
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

type storedResponse struct {
	Hash     string          `json:"hash"`
	Response json.RawMessage `json:"response"`
}

// RedisIdempotency keeps keys in Redis with a TTL. It is used when the
// deployment already runs Redis for the event relay.
type RedisIdempotency struct {
	client *redis.Client
	prefix string
	TTL    time.Duration
}

func NewRedisIdempotency(client *redis.Client, prefix string) *RedisIdempotency {
	if prefix == "" {
		prefix = "idempotency:"
	}
	return &RedisIdempotency{client: client, prefix: prefix, TTL: DefaultIdempotencyTTL}
}

func (s *RedisIdempotency) Check(ctx context.Context, key IdempotencyKey, requestHash string) (json.RawMessage, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}
	var entry storedResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode idempotency entry: %w", err)
	}
	if entry.Hash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return entry.Response, true, nil
}

// Save only writes when the key is free, so two concurrent first attempts
// cannot both win.
func (s *RedisIdempotency) Save(ctx context.Context, key IdempotencyKey, requestHash string, response json.RawMessage) error {
	payload, err := json.Marshal(storedResponse{Hash: requestHash, Response: response})
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.prefix+key.String(), payload, s.TTL).Result()
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	if ok {
		return nil
	}
	_, found, err := s.Check(ctx, key, requestHash)
	if err != nil {
		return err
	}
	if !found {
		return ErrIdempotencyConflict
	}
	return nil
}

// MemoryIdempotency keeps keys for the life of the process. It backs the
// handler tests.
type MemoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]storedResponse
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{entries: map[string]storedResponse{}}
}

func (m *MemoryIdempotency) Check(_ context.Context, key IdempotencyKey, requestHash string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key.String()]
	if !ok {
		return nil, false, nil
	}
	if entry.Hash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return entry.Response, true, nil
}

func (m *MemoryIdempotency) Save(_ context.Context, key IdempotencyKey, requestHash string, response json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := key.String()
	if entry, ok := m.entries[id]; ok && entry.Hash != requestHash {
		return ErrIdempotencyConflict
	}
	m.entries[id] = storedResponse{Hash: requestHash, Response: append(json.RawMessage(nil), response...)}
	return nil
}
