package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

func TestTimeTrend_WeeklyBuckets(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: alice, Status: "Done", StoryPoints: 3, TimeSpentHours: 6, OriginalEstimateHours: 4, Updated: time.Date(2025, 1, 9, 15, 0, 0, 0, time.UTC)},
		{Key: "CAP-2", Assignee: alice, Status: "Done", StoryPoints: 5, TimeSpentHours: 10, OriginalEstimateHours: 10, Updated: time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)},
		{Key: "CAP-3", Assignee: bob, Status: "Done", StoryPoints: 1, TimeSpentHours: 2, OriginalEstimateHours: 2, Updated: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)},
		{Key: "CAP-4", Assignee: alice, Status: "Done", StoryPoints: 1, TimeSpentHours: 1, Updated: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)},
	}

	points, err := TimeTrend(issues, domain.MemberScope(uuid.New(), alice), span(day(2025, 1, 8), day(2025, 1, 21)))

	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, day(2025, 1, 8), points[0].PeriodStart)
	assert.Equal(t, day(2025, 1, 12), points[0].PeriodEnd)
	assert.Equal(t, 1, points[0].Issues)
	assert.Equal(t, 1.5, points[0].TimeActualVsEstimate)
	assert.Equal(t, 0.5, points[0].BurnRate)

	assert.Equal(t, day(2025, 1, 13), points[1].PeriodStart)
	assert.Equal(t, day(2025, 1, 19), points[1].PeriodEnd)
	assert.Equal(t, 1, points[1].Issues)
	assert.Equal(t, 10.0, points[1].TimeSpentHours)

	assert.Equal(t, day(2025, 1, 20), points[2].PeriodStart)
	assert.Equal(t, day(2025, 1, 21), points[2].PeriodEnd)
	assert.Equal(t, 0, points[2].Issues)
}

func TestTimeTrend_TeamScopeIncludesEveryone(t *testing.T) {
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: uuid.New(), TimeSpentHours: 2, Updated: day(2025, 1, 6)},
		{Key: "CAP-2", Assignee: uuid.New(), TimeSpentHours: 3, Updated: day(2025, 1, 7)},
	}

	points, err := TimeTrend(issues, domain.TeamScope(uuid.New()), span(day(2025, 1, 6), day(2025, 1, 12)))

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2, points[0].Issues)
	assert.Equal(t, 5.0, points[0].TimeSpentHours)
}

func TestTimeTrend_InvalidRange(t *testing.T) {
	_, err := TimeTrend(nil, domain.TeamScope(uuid.New()), span(day(2025, 1, 12), day(2025, 1, 6)))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
