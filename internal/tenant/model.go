package tenant

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Tenant is one clinic/organization. Its table_prefix decides which
// physical table set holds the clinic's patients, doctors, services,
// appointments and waitlist; nothing in the core ever queries a table
// name that did not come through a resolved Partition.
type Tenant struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	TablePrefix string
	Address     string
	Phone       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// prefixPattern is the only shape a table prefix may have. It is
// validated before a prefix is ever interpolated into SQL.
var prefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,30}$`)

// ValidPrefix reports whether s is safe to use as a partition prefix.
func ValidPrefix(s string) bool {
	return prefixPattern.MatchString(s)
}

// Partition is a resolved tenant: the typed handle every core
// operation is parameterized by. Table names are derived, never
// caller-supplied.
type Partition struct {
	TenantID   uuid.UUID
	ClinicName string
	Address    string
	Phone      string

	prefix string
}

// NewPartition builds a partition for a validated prefix.
func NewPartition(t *Tenant) Partition {
	return Partition{
		TenantID:   t.ID,
		ClinicName: t.Name,
		Address:    t.Address,
		Phone:      t.Phone,
		prefix:     t.TablePrefix,
	}
}

func (p Partition) Patients() string     { return p.prefix + "_patients" }
func (p Partition) Doctors() string      { return p.prefix + "_doctors" }
func (p Partition) Services() string     { return p.prefix + "_services" }
func (p Partition) Appointments() string { return p.prefix + "_appointments" }
func (p Partition) Waitlist() string     { return p.prefix + "_waitlist" }
