// Package migrations embeds the SQL migrations for the shared tables.
// Per-tenant table sets are provisioned at runtime, not migrated here.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
