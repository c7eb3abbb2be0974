package convergence

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry records the latest log digest per replica of a session.
type Registry interface {
	Publish(ctx context.Context, session, replica, digest string) error
	Digests(ctx context.Context, session string) (map[string]string, error)
}

const (
	// DefaultKeyPrefix prefixes the Redis hash that holds a session's digests.
	DefaultKeyPrefix = "movelog:digest:"

	// DefaultTTL is how long a session's digests survive without a publish.
	DefaultTTL = 24 * time.Hour
)

// RedisRegistry keeps one hash per session, field = replica, value = digest.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisRegistry.
type RedisOption func(*RedisRegistry)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRegistry) {
		r.prefix = prefix
	}
}

// WithTTL overrides DefaultTTL. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRegistry) {
		r.ttl = ttl
	}
}

// NewRedisRegistry creates a registry backed by client.
func NewRedisRegistry(client *redis.Client, opts ...RedisOption) *RedisRegistry {
	r := &RedisRegistry{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRegistry) key(session string) string {
	return r.prefix + session
}

// Publish implements Registry. The digest write and the expiry refresh are
// sent in one MULTI/EXEC.
func (r *RedisRegistry) Publish(ctx context.Context, session, replica, digest string) error {
	key := r.key(session)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, replica, digest)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	return nil
}

// Digests implements Registry.
func (r *RedisRegistry) Digests(ctx context.Context, session string) (map[string]string, error) {
	digests, err := r.client.HGetAll(ctx, r.key(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("read digests: %w", err)
	}
	return digests, nil
}

// MemoryRegistry is an in-process Registry for replicas that share a process.
// Safe for concurrent use.
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]map[string]string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]map[string]string)}
}

// Publish implements Registry.
func (m *MemoryRegistry) Publish(_ context.Context, session, replica, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replicas, ok := m.sessions[session]
	if !ok {
		replicas = make(map[string]string)
		m.sessions[session] = replicas
	}
	replicas[replica] = digest
	return nil
}

// Digests implements Registry.
func (m *MemoryRegistry) Digests(_ context.Context, session string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.sessions[session]), nil
}

// Report is the result of Check.
type Report struct {
	Session   string              `json:"session"`
	Converged bool                `json:"converged"`
	Replicas  int                 `json:"replicas"`
	ByDigest  map[string][]string `json:"by_digest"` // digest -> sorted replica names
}

// Check reads every published digest for session.
// A session converges when at least one replica published and all agree.
func Check(ctx context.Context, reg Registry, session string) (Report, error) {
	digests, err := reg.Digests(ctx, session)
	if err != nil {
		return Report{}, fmt.Errorf("check %s: %w", session, err)
	}

	report := Report{
		Session:  session,
		Replicas: len(digests),
		ByDigest: make(map[string][]string),
	}
	for _, replica := range slices.Sorted(maps.Keys(digests)) {
		d := digests[replica]
		report.ByDigest[d] = append(report.ByDigest[d], replica)
	}
	report.Converged = len(report.ByDigest) == 1
	return report, nil
}
