package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
)

func TestAuditRepositoryInsertAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.AuditEvent{
		OrgID:      "org-1",
		EventType:  models.AuditRequestRevoked,
		EntityType: models.AuditEntityUploadRequest,
		EntityID:   "req-1",
		Metadata:   models.NewAuditMetadata(map[string]string{"previous_status": "pending"}),
	}
	require.NoError(t, repo.Insert(context.Background(), event))
	assert.NotEmpty(t, event.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events WHERE org_id = $1 AND entity_type = $2 AND entity_id = $3")).
		WithArgs("org-1", models.AuditEntityUploadRequest, "req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "event_type", "entity_type", "entity_id", "actor_id", "metadata", "ip_address", "created_at"}).
			AddRow(event.ID, "org-1", models.AuditRequestRevoked, models.AuditEntityUploadRequest, "req-1", "staff-1",
				[]byte(`{"v":1,"fields":{"previous_status":"pending"}}`), nil, time.Now()))

	events, err := repo.ListByEntity(context.Background(), "org-1", models.AuditEntityUploadRequest, "req-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pending", events[0].Metadata.Fields["previous_status"])
	require.NotNil(t, events[0].ActorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryExistence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM work_orders WHERE id = $1 AND org_id = $2")).
		WithArgs("wo-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM vendors WHERE id = $1 AND org_id = $2")).
		WithArgs("vendor-9", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.WorkOrderExists(context.Background(), "org-1", "wo-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VendorExists(context.Background(), "org-1", "vendor-9")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepositoryWithoutRedisIsNoop(t *testing.T) {
	repo := NewAttemptRepository(nil)

	count, err := repo.Increment(context.Background(), AttemptKey("10.0.0.1", "req-1"), time.Minute)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.Count(context.Background(), AttemptKey("10.0.0.1", "req-1"))
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, repo.Reset(context.Background(), "k"))
	require.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, "upload:attempts:req-1:10.0.0.1", AttemptKey("10.0.0.1", "req-1"))
}
