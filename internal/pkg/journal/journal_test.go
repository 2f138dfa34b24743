package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
)

// flakyOps fails the first n Create calls before delegating.
type flakyOps struct {
	repository.OperationRepository
	failures int
}

func (f *flakyOps) Create(record *models.OperationRecord) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("storage unavailable")
	}
	return f.OperationRepository.Create(record)
}

func seedRecords(t *testing.T, j *Journal, day time.Time, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		err := j.Record(context.Background(), &models.OperationRecord{
			UserID:    uint(i%3 + 1),
			Operation: models.OpMergePDF,
			Status:    models.OperationStatusSuccess,
			CreatedAt: day.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestRecordAppends(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	j := NewJournal(repos.Op)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	rec := &models.OperationRecord{UserID: 1, Operation: models.OpCompressPDF, Status: models.OperationStatusFailure, CreatedAt: now}
	require.NoError(t, j.Record(context.Background(), rec))
	assert.NotZero(t, rec.ID)

	count, err := j.CountSince(now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRecordRetriesTransientFailures(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	flaky := &flakyOps{OperationRepository: repos.Op, failures: 2}
	j := NewJournal(flaky)

	err := j.Record(context.Background(), &models.OperationRecord{
		UserID:    1,
		Operation: models.OpMergePDF,
		Status:    models.OperationStatusSuccess,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	count, err := j.CountSince(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRecordSurfacesExhaustedRetries(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	flaky := &flakyOps{OperationRepository: repos.Op, failures: 10}
	j := NewJournal(flaky)

	// Cancel between attempts so the test does not sit through the backoff.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := j.Record(ctx, &models.OperationRecord{UserID: 1, Operation: models.OpMergePDF, Status: models.OperationStatusSuccess})
	assert.ErrorIs(t, err, ErrJournalWrite)
}

func TestCursorScansRangeInOrder(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	j := NewJournal(repos.Op)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	seedRecords(t, j, day, 10)
	// One record past the end of the range must not be visible.
	require.NoError(t, j.Record(context.Background(), &models.OperationRecord{
		UserID: 1, Operation: models.OpMergePDF, Status: models.OperationStatusSuccess, CreatedAt: day.Add(24 * time.Hour),
	}))

	cursor := j.QueryByDateRange(day, day.Add(24*time.Hour))
	var lastID uint
	seen := 0
	for {
		rec, err := cursor.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		assert.Greater(t, rec.ID, lastID, "scan must be ordered by insertion")
		lastID = rec.ID
		seen++
	}
	assert.Equal(t, 10, seen)
}

func TestCursorIsRestartable(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	j := NewJournal(repos.Op)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	seedRecords(t, j, day, 10)

	cursor := j.QueryByDateRange(day, day.Add(24*time.Hour))
	var checkpoint uint
	for i := 0; i < 4; i++ {
		rec, err := cursor.Next()
		require.NoError(t, err)
		require.NotNil(t, rec)
		checkpoint = rec.ID
	}

	// A fresh cursor resumed at the checkpoint yields the remaining records
	// exactly once.
	resumed := j.ResumeByDateRange(day, day.Add(24*time.Hour), checkpoint)
	seen := 0
	for {
		rec, err := resumed.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		assert.Greater(t, rec.ID, checkpoint)
		seen++
	}
	assert.Equal(t, 6, seen)
}

func TestCursorEmptyRange(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	j := NewJournal(repos.Op)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cursor := j.QueryByDateRange(day, day.Add(24*time.Hour))
	rec, err := cursor.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}
