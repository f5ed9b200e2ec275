package notification

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PgStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgStore(mock)
}

func TestUpsertResetsDeliveryStateOnConflict(t *testing.T) {
	mock, store := newMockStore(t)

	n := &ScheduledNotification{
		TenantID:      uuid.New(),
		AppointmentID: uuid.New(),
		TemplateType:  Type24h,
		FireTime:      time.Date(2026, 9, 13, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (appointment_id, template_type)")).
		WithArgs(pgxmock.AnyArg(), n.TenantID, n.AppointmentID, Type24h, n.FireTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Upsert(context.Background(), n))
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDueSelectsPendingUpToNow(t *testing.T) {
	mock, store := newMockStore(t)

	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	id := uuid.New()

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "appointment_id", "template_type", "fire_time",
		"status", "attempts", "last_error", "sent_at", "created_at", "updated_at",
	}).AddRow(id, uuid.New(), uuid.New(), Type2h, now.Add(-time.Minute),
		StatusPending, 0, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'pending' AND fire_time <= $1")).
		WithArgs(now, 100).
		WillReturnRows(rows)

	due, err := store.Due(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
	assert.Equal(t, Type2h, due[0].TemplateType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailureKeepsPendingUntilTerminal(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = $2, last_error = $3, status = $4")).
		WithArgs(id, 1, "connection refused", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.RecordFailure(context.Background(), id, 1, "connection refused", false))

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = $2, last_error = $3, status = $4")).
		WithArgs(id, 3, "connection refused", "failed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.RecordFailure(context.Background(), id, 3, "connection refused", true))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelPendingScopesToTenantAndAppointment(t *testing.T) {
	mock, store := newMockStore(t)
	tenantID, apptID := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("WHERE tenant_id = $1 AND appointment_id = $2 AND status = 'pending'")).
		WithArgs(tenantID, apptID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	count, err := store.CancelPending(context.Background(), tenantID, apptID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
