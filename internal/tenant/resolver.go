package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrUnknownTenant = errors.New("unknown or inactive tenant")
	ErrBadPrefix     = errors.New("tenant has an invalid table prefix")
)

// Store loads tenant rows from the shared tenants table.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
}

type cached struct {
	part      Partition
	expiresAt time.Time
}

// Resolver maps a tenant identifier to its partition. Resolutions are
// cached in-process with a TTL so repeated operations inside a
// request/session do not hit the tenants table again.
type Resolver struct {
	store Store
	ttl   time.Duration

	mu     sync.RWMutex
	byID   map[uuid.UUID]cached
	bySlug map[string]cached
}

func NewResolver(store Store, cacheTTL time.Duration) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Resolver{
		store:  store,
		ttl:    cacheTTL,
		byID:   make(map[uuid.UUID]cached),
		bySlug: make(map[string]cached),
	}
}

// Resolve returns the partition backing the tenant, or ErrUnknownTenant
// if the id does not match a known active tenant.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID) (*Partition, error) {
	r.mu.RLock()
	entry, ok := r.byID[id]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		part := entry.part
		return &part, nil
	}

	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownTenant
		}
		return nil, fmt.Errorf("resolve tenant %s: %w", id, err)
	}

	part, err := r.admit(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byID[id] = cached{part: *part, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return part, nil
}

// ResolveSlug is the gateway-facing variant: automation callers
// identify tenants by slug, not uuid.
func (r *Resolver) ResolveSlug(ctx context.Context, slug string) (*Partition, error) {
	r.mu.RLock()
	entry, ok := r.bySlug[slug]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		part := entry.part
		return &part, nil
	}

	t, err := r.store.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownTenant
		}
		return nil, fmt.Errorf("resolve tenant slug %q: %w", slug, err)
	}

	part, err := r.admit(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.bySlug[slug] = cached{part: *part, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return part, nil
}

func (r *Resolver) admit(t *Tenant) (*Partition, error) {
	if !t.Active {
		return nil, ErrUnknownTenant
	}
	if !ValidPrefix(t.TablePrefix) {
		return nil, fmt.Errorf("%w: %q", ErrBadPrefix, t.TablePrefix)
	}
	part := NewPartition(t)
	return &part, nil
}
