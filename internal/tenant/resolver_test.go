package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	byID   map[uuid.UUID]*Tenant
	bySlug map[string]*Tenant
	calls  int
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	f.calls++
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	f.calls++
	if t, ok := f.bySlug[slug]; ok {
		return t, nil
	}
	return nil, pgx.ErrNoRows
}

func testTenant(prefix string, active bool) *Tenant {
	return &Tenant{
		ID:          uuid.New(),
		Name:        "Clínica Boa Vista",
		Slug:        "boa-vista",
		TablePrefix: prefix,
		Address:     "Rua das Flores 100",
		Phone:       "+55 11 4002-8922",
		Active:      active,
	}
}

func newFakeStore(tenants ...*Tenant) *fakeStore {
	f := &fakeStore{byID: map[uuid.UUID]*Tenant{}, bySlug: map[string]*Tenant{}}
	for _, t := range tenants {
		f.byID[t.ID] = t
		f.bySlug[t.Slug] = t
	}
	return f
}

func TestResolvePartitionTables(t *testing.T) {
	tn := testTenant("boavista", true)
	r := NewResolver(newFakeStore(tn), time.Minute)

	part, err := r.Resolve(context.Background(), tn.ID)
	require.NoError(t, err)

	assert.Equal(t, tn.ID, part.TenantID)
	assert.Equal(t, "boavista_patients", part.Patients())
	assert.Equal(t, "boavista_doctors", part.Doctors())
	assert.Equal(t, "boavista_services", part.Services())
	assert.Equal(t, "boavista_appointments", part.Appointments())
	assert.Equal(t, "boavista_waitlist", part.Waitlist())
}

func TestResolveUnknownTenant(t *testing.T) {
	r := NewResolver(newFakeStore(), time.Minute)

	_, err := r.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownTenant)

	_, err = r.ResolveSlug(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownTenant)
}

func TestResolveInactiveTenant(t *testing.T) {
	tn := testTenant("boavista", false)
	r := NewResolver(newFakeStore(tn), time.Minute)

	_, err := r.Resolve(context.Background(), tn.ID)
	assert.ErrorIs(t, err, ErrUnknownTenant)
}

func TestResolveRejectsHostilePrefix(t *testing.T) {
	tn := testTenant(`boavista"; DROP TABLE patients; --`, true)
	r := NewResolver(newFakeStore(tn), time.Minute)

	_, err := r.Resolve(context.Background(), tn.ID)
	assert.ErrorIs(t, err, ErrBadPrefix)
}

func TestResolveCachesWithinTTL(t *testing.T) {
	tn := testTenant("boavista", true)
	store := newFakeStore(tn)
	r := NewResolver(store, time.Minute)

	_, err := r.Resolve(context.Background(), tn.ID)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), tn.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
}

func TestResolveSlug(t *testing.T) {
	tn := testTenant("boavista", true)
	r := NewResolver(newFakeStore(tn), time.Minute)

	part, err := r.ResolveSlug(context.Background(), "boa-vista")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, part.TenantID)
}

func TestValidPrefix(t *testing.T) {
	assert.True(t, ValidPrefix("clinic_a"))
	assert.True(t, ValidPrefix("boavista2"))
	assert.False(t, ValidPrefix("Boavista"))
	assert.False(t, ValidPrefix("1clinic"))
	assert.False(t, ValidPrefix("a b"))
	assert.False(t, ValidPrefix(""))
}
