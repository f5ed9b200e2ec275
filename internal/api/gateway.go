package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

const tenantKey contextKey = "tenant_partition"

const maxBodyBytes = 1 << 20

// APIKeyMiddleware guards the automation gateway with a shared secret.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TenantResolver resolves tenant identifiers to partitions.
type TenantResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*tenant.Partition, error)
	ResolveSlug(ctx context.Context, slug string) (*tenant.Partition, error)
}

// TenantMiddleware resolves the caller's tenant and stores the
// partition in the request context. Identification precedence:
// X-Tenant-ID header, then the tenant query parameter, then a
// tenant_id field in a JSON body, then the configured fallback slug.
func TenantMiddleware(resolver TenantResolver, fallbackSlug string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ref := r.Header.Get("X-Tenant-ID")
			if ref == "" {
				ref = r.URL.Query().Get("tenant")
			}
			if ref == "" && r.Body != nil {
				ref = tenantFromBody(r)
			}
			if ref == "" {
				ref = fallbackSlug
			}

			part, err := resolveRef(r.Context(), resolver, ref)
			if err != nil {
				if errors.Is(err, tenant.ErrUnknownTenant) {
					writeError(w, http.StatusNotFound, "unknown_tenant", "tenant not found or inactive")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal_error", "could not resolve tenant")
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey, *part)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantFromBody peeks at a JSON body for a tenant_id field, restoring
// the body for the handler afterwards.
func tenantFromBody(r *http.Request) string {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var probe struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.TenantID
}

func resolveRef(ctx context.Context, resolver TenantResolver, ref string) (*tenant.Partition, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return resolver.Resolve(ctx, id)
	}
	return resolver.ResolveSlug(ctx, ref)
}

// PartitionFrom returns the tenant partition resolved for this
// request.
func PartitionFrom(ctx context.Context) (tenant.Partition, bool) {
	part, ok := ctx.Value(tenantKey).(tenant.Partition)
	return part, ok
}
