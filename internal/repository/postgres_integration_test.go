//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospital-ops/internal/config"
	"hospital-ops/internal/database"
	"hospital-ops/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping integration test: database not available: %v", err)
	}
	return db
}

func createTestWard(t *testing.T, db *sql.DB, tenantID string, totalBeds int) string {
	wardID := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO wards (ward_id, tenant_id, ward_name, department, total_beds, occupied_beds)
		 VALUES ($1, $2, $3, $4, $5, 0)`,
		wardID, tenantID, "Test Ward", "cardiology", totalBeds,
	)
	require.NoError(t, err)
	return wardID
}

func TestReserveBedNeverOverCommits(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tenantID := uuid.NewString()
	wardID := createTestWard(t, db, tenantID, 3)
	repo := NewPostgresWardsRepository(db)

	// Race 10 reservations for 3 beds; exactly 3 must win.
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.ReserveBed(context.Background(), tenantID, wardID)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 3, won)

	ward, err := repo.GetWard(context.Background(), tenantID, wardID)
	require.NoError(t, err)
	assert.Equal(t, 3, ward.OccupiedBeds)
}

func TestReserveBedUnknownWard(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewPostgresWardsRepository(db)
	err := repo.ReserveBed(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskDedupeIndex(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tenantID := uuid.NewString()
	repo := NewPostgresTasksRepository(db)

	due := time.Now().UTC().Truncate(time.Minute)
	task := func() *domain.Task {
		d := due
		return &domain.Task{
			PatientID:      uuid.NewString(),
			Title:          "Administer Amoxicillin 500mg",
			TaskType:       domain.TaskTypeMedication,
			Priority:       domain.PriorityMedium,
			DueTime:        &d,
			Status:         domain.TaskPending,
			PrescriptionID: "rx-dedupe-1",
		}
	}

	firstID, err := repo.CreateTask(context.Background(), tenantID, task())
	require.NoError(t, err)

	// Same prescription, same 5-minute bucket: resolves to the first row.
	secondID, err := repo.CreateTask(context.Background(), tenantID, task())
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)

	// Next dose interval is a distinct task.
	later := task()
	shifted := due.Add(6 * time.Hour)
	later.DueTime = &shifted
	thirdID, err := repo.CreateTask(context.Background(), tenantID, later)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, thirdID)
}

func TestAuditAppendOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tenantID := uuid.NewString()
	repo := NewPostgresAuditRepository(db)

	eventID, err := repo.AppendEvent(context.Background(), &domain.AuditEvent{
		TenantID:     tenantID,
		ActorID:      "nurse-1",
		ActorRole:    domain.RoleNurse,
		Action:       "clock_in",
		ResourceType: "shift",
		ResourceID:   uuid.NewString(),
		Before:       []byte(`{"status":"scheduled"}`),
		After:        []byte(`{"status":"active"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, eventID)
}
