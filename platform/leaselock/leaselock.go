// Package leaselock provides a redis-backed mutual-exclusion lease keyed by an
// arbitrary string. The scoring engine uses it to serialize recomputations per
// lead; the registry itself is partitioned by key and holds no local state, so
// any number of worker processes can share it.
// This is part of the platform layer and contains no business logic.
package leaselock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when the lease could not be acquired within the wait budget.
var ErrBusy = errors.New("leaselock: key busy")

// acquirePollInterval is how often a blocked Acquire re-attempts SET NX.
const acquirePollInterval = 50 * time.Millisecond

// releaseScript deletes the key only if it still holds our token, so an
// expired lease that was re-acquired by another holder is never released
// out from under them.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Registry hands out leases for keys. TTL bounds how long a crashed holder
// can block others.
type Registry struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New creates a lease registry. Keys are stored under prefix to keep the
// redis keyspace shared with the task queue tidy.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Registry{client: client, prefix: prefix, ttl: ttl}
}

// Lease is a held lock. Release it when done; expiry is the fallback.
type Lease struct {
	registry *Registry
	key      string
	token    string
}

// Acquire attempts to take the lease for key, retrying until wait has
// elapsed. Returns ErrBusy if another holder kept the lease for the whole
// wait window, or the context error if ctx is cancelled first.
func (r *Registry) Acquire(ctx context.Context, key string, wait time.Duration) (*Lease, error) {
	token := uuid.NewString()
	fullKey := r.prefix + key
	deadline := time.Now().Add(wait)

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lease{registry: r, key: fullKey, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// Release frees the lease. Releasing a lease that already expired is not an
// error; the next holder's state is left untouched.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.registry.client, []string{l.key}, l.token).Err()
}
