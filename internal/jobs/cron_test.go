package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

type MockSnapshotService struct {
	mock.Mock
}

func (m *MockSnapshotService) GenerateWeeklySnapshots(ctx context.Context, rng domain.DateRange) (int, error) {
	args := m.Called(ctx, rng)
	return args.Int(0), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) AdvisoryUnlock(ctx context.Context, key int64) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPreviousWeek(t *testing.T) {
	want := domain.DateRange{
		Start: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
	}

	// Понедельник утром, середина недели и воскресенье вечером.
	for _, now := range []time.Time{
		time.Date(2025, 1, 13, 6, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 19, 23, 59, 0, 0, time.UTC),
	} {
		assert.Equal(t, want, PreviousWeek(now), now.String())
	}
}

func TestNewCron_InvalidSpec(t *testing.T) {
	_, err := NewCron("every tuesday", new(MockSnapshotService), new(MockLocker))

	assert.Error(t, err)
}

func TestRunSnapshots_Success(t *testing.T) {
	svc := new(MockSnapshotService)
	locks := new(MockLocker)
	cr, err := NewCron("0 6 * * MON", svc, locks)
	require.NoError(t, err)
	cr.now = fixedNow(time.Date(2025, 1, 13, 6, 0, 0, 0, time.UTC))

	week := PreviousWeek(cr.now())
	locks.On("TryAdvisoryLock", mock.Anything, snapshotLockKey).Return(true, nil)
	locks.On("AdvisoryUnlock", mock.Anything, snapshotLockKey).Return(nil)
	svc.On("GenerateWeeklySnapshots", mock.Anything, week).Return(3, nil)

	require.NoError(t, cr.RunSnapshots(context.Background()))

	svc.AssertExpectations(t)
	locks.AssertExpectations(t)
}

func TestRunSnapshots_LockHeldElsewhere(t *testing.T) {
	svc := new(MockSnapshotService)
	locks := new(MockLocker)
	cr, err := NewCron("@weekly", svc, locks)
	require.NoError(t, err)

	locks.On("TryAdvisoryLock", mock.Anything, snapshotLockKey).Return(false, nil)

	require.NoError(t, cr.RunSnapshots(context.Background()))

	svc.AssertNotCalled(t, "GenerateWeeklySnapshots", mock.Anything, mock.Anything)
	locks.AssertNotCalled(t, "AdvisoryUnlock", mock.Anything, mock.Anything)
}

func TestRunSnapshots_ServiceErrorStillUnlocks(t *testing.T) {
	svc := new(MockSnapshotService)
	locks := new(MockLocker)
	cr, err := NewCron("0 6 * * MON", svc, locks)
	require.NoError(t, err)

	locks.On("TryAdvisoryLock", mock.Anything, snapshotLockKey).Return(true, nil)
	locks.On("AdvisoryUnlock", mock.Anything, snapshotLockKey).Return(nil)
	svc.On("GenerateWeeklySnapshots", mock.Anything, mock.Anything).Return(1, errors.New("team x: boom"))

	err = cr.RunSnapshots(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generated 1 snapshots")
	locks.AssertExpectations(t)
}
