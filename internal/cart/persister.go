package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces saved carts in shared storage.
const KeyPrefix = "kaybirks-cart"

var ErrCorruptCart = errors.New("corrupt cart payload")

type Persister interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
}

// Sessions hands out the persister for a cart session id.
type Sessions interface {
	For(sessionID string) Persister
}

func Key(sessionID string) string {
	return KeyPrefix + ":" + sessionID
}

func encode(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

func decode(raw []byte) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	for _, l := range lines {
		if l.Product.ID == uuid.Nil || l.Quantity < 1 {
			return nil, fmt.Errorf("%w: invalid line", ErrCorruptCart)
		}
	}
	return lines, nil
}

// RedisSessions keeps each cart as one JSON document with a sliding TTL.
type RedisSessions struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisSessions(client redis.UniversalClient, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (s *RedisSessions) For(sessionID string) Persister {
	return &redisPersister{sessions: s, key: Key(sessionID)}
}

type redisPersister struct {
	sessions *RedisSessions
	key      string
}

func (p *redisPersister) Load(ctx context.Context) ([]Line, error) {
	raw, err := p.sessions.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: redis get %s: %w", p.key, err)
	}
	return decode(raw)
}

func (p *redisPersister) Save(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return p.sessions.client.Del(ctx, p.key).Err()
	}

	data, err := encode(lines)
	if err != nil {
		return err
	}
	return p.sessions.client.Set(ctx, p.key, data, p.sessions.ttl).Err()
}

// MemorySessions keeps serialized carts in process memory.
type MemorySessions struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{data: make(map[string][]byte)}
}

func (s *MemorySessions) For(sessionID string) Persister {
	return &memoryPersister{sessions: s, key: Key(sessionID)}
}

type memoryPersister struct {
	sessions *MemorySessions
	key      string
}

func (p *memoryPersister) Load(_ context.Context) ([]Line, error) {
	p.sessions.mu.RLock()
	raw, ok := p.sessions.data[p.key]
	p.sessions.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return decode(raw)
}

func (p *memoryPersister) Save(_ context.Context, lines []Line) error {
	data, err := encode(lines)
	if err != nil {
		return err
	}

	p.sessions.mu.Lock()
	defer p.sessions.mu.Unlock()

	if len(lines) == 0 {
		delete(p.sessions.data, p.key)
		return nil
	}
	p.sessions.data[p.key] = data
	return nil
}
