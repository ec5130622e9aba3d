package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

func member(name string, loc domain.Location) domain.Member {
	return domain.Member{UserID: uuid.New(), Name: name, Email: name + "@example.com", Location: loc}
}

func TestProject_OverCapacity(t *testing.T) {
	alice := member("alice", domain.LocationUS)
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: alice.UserID, Status: "In Progress", OriginalEstimateHours: 30},
		{Key: "CAP-2", Assignee: alice.UserID, Status: "To Do", OriginalEstimateHours: 20},
	}

	c, err := Project(CapacityInput{
		Member: alice,
		Range:  span(day(2025, 1, 6), day(2025, 1, 10)),
		Issues: issues,
	})

	require.NoError(t, err)
	assert.Equal(t, 40.0, c.AvailableHours)
	assert.Equal(t, 0.0, c.PTOHours)
	assert.Equal(t, 50.0, c.TimeRemainingHours)
	assert.Equal(t, 40.0, c.NetAvailableHours)
	assert.Equal(t, 40.0, c.AssignedWithinCapacityHours)
	assert.Equal(t, 0.0, c.RemainingBandwidthHours)
	assert.Equal(t, 10.0, c.OverCapacityHours)
	assert.Equal(t, 100.0, c.UtilizationPct)
	assert.Equal(t, domain.CapacityOver, c.Status)
}

func TestProject_UnderCapacityWithPTO(t *testing.T) {
	alice := member("alice", domain.LocationIndia)
	pto := []domain.PTORecord{
		{UserID: alice.UserID, StartDate: day(2025, 1, 8), EndDate: day(2025, 1, 8), DurationHours: 8, Status: domain.PTOApproved},
	}
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: alice.UserID, Status: "Open", OriginalEstimateHours: 20, TimeSpentHours: 4},
		{Key: "CAP-2", Assignee: alice.UserID, Status: "Done", OriginalEstimateHours: 40},
	}

	c, err := Project(CapacityInput{
		Member: alice,
		Range:  span(day(2025, 1, 6), day(2025, 1, 10)),
		Issues: issues,
		PTO:    pto,
	})

	require.NoError(t, err)
	assert.Equal(t, 40.0, c.AvailableHours)
	assert.Equal(t, 8.0, c.PTOHours)
	assert.Equal(t, 16.0, c.TimeRemainingHours)
	assert.Equal(t, 32.0, c.NetAvailableHours)
	assert.Equal(t, 16.0, c.AssignedWithinCapacityHours)
	assert.Equal(t, 16.0, c.RemainingBandwidthHours)
	assert.Equal(t, 0.0, c.OverCapacityHours)
	assert.Equal(t, 50.0, c.UtilizationPct)
	assert.Equal(t, domain.CapacityUnder, c.Status)
}

func TestProject_AtCapacity(t *testing.T) {
	alice := member("alice", domain.LocationUS)
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: alice.UserID, Status: "In Progress", OriginalEstimateHours: 38},
	}

	c, err := Project(CapacityInput{Member: alice, Range: span(day(2025, 1, 6), day(2025, 1, 10)), Issues: issues})

	require.NoError(t, err)
	assert.Equal(t, 95.0, c.UtilizationPct)
	assert.Equal(t, domain.CapacityAt, c.Status)
}

func TestProject_PTOExceedsAvailable(t *testing.T) {
	alice := member("alice", domain.LocationUS)
	pto := []domain.PTORecord{
		{UserID: alice.UserID, StartDate: day(2025, 1, 6), EndDate: day(2025, 1, 14), DurationHours: 56, Status: domain.PTOApproved},
	}

	c, err := Project(CapacityInput{Member: alice, Range: span(day(2025, 1, 6), day(2025, 1, 10)), PTO: pto})

	require.NoError(t, err)
	assert.Equal(t, 0.0, c.NetAvailableHours)
	assert.Equal(t, 0.0, c.UtilizationPct)
	assert.Equal(t, 0.0, c.RemainingBandwidthHours)
	assert.Equal(t, domain.CapacityUnder, c.Status)
}

func TestTimeRemainingHours_OverspentIssueFlooredAtZero(t *testing.T) {
	alice := uuid.New()
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: alice, Status: "In Progress", OriginalEstimateHours: 4, TimeSpentHours: 10},
		{Key: "CAP-2", Assignee: alice, Status: "In Progress", OriginalEstimateHours: 8, TimeSpentHours: 2},
		{Key: "CAP-3", Assignee: alice, Status: "Resolved", OriginalEstimateHours: 8},
		{Key: "CAP-4", Assignee: uuid.New(), Status: "Open", OriginalEstimateHours: 8},
	}

	assert.Equal(t, 6.0, TimeRemainingHours(alice, issues))
}

func TestProjectTeam(t *testing.T) {
	alice := member("alice", domain.LocationUS)
	bob := member("bob", domain.LocationIndia)
	team := domain.Team{TeamID: uuid.New(), TeamName: "platform", Members: []domain.Member{alice, bob}}
	holidays := []domain.Holiday{
		{Name: "Republic Day", Date: day(2025, 1, 7), Location: domain.LocationIndia, Hours: 8},
	}
	issues := []domain.Issue{
		{Key: "CAP-1", Assignee: alice.UserID, Status: "In Progress", OriginalEstimateHours: 50},
		{Key: "CAP-2", Assignee: bob.UserID, Status: "Code Review", OriginalEstimateHours: 8},
		{Key: "CAP-3", Assignee: uuid.New(), Status: "Blocked", OriginalEstimateHours: 8},
	}

	result, err := ProjectTeam(TeamCapacityInput{
		Team:     team,
		Range:    span(day(2025, 1, 6), day(2025, 1, 10)),
		Issues:   issues,
		Holidays: holidays,
	})

	require.NoError(t, err)
	require.Len(t, result.Members, 2)
	assert.Equal(t, alice.UserID, result.Members[0].UserID)
	assert.Equal(t, 40.0, result.Members[0].AvailableHours)
	assert.Equal(t, 32.0, result.Members[1].AvailableHours)

	assert.Equal(t, 72.0, result.Totals.AvailableHours)
	assert.Equal(t, 58.0, result.Totals.TimeRemainingHours)
	assert.Equal(t, 48.0, result.Totals.AssignedWithinCapacityHours)
	assert.Equal(t, 24.0, result.Totals.RemainingBandwidthHours)
	assert.Equal(t, 10.0, result.Totals.OverCapacityHours)
	assert.Equal(t, 1, result.Totals.OverCapacityMembers)
	assert.Equal(t, 66.67, result.Totals.UtilizationPct)
	assert.Equal(t, domain.StatusBreakdown{
		domain.StatusInProgress:   1,
		domain.StatusInCodeReview: 1,
	}, result.StatusBreakdown)
}

func TestProjectTeam_MissingRoster(t *testing.T) {
	_, err := ProjectTeam(TeamCapacityInput{
		Team:  domain.Team{TeamID: uuid.New()},
		Range: span(day(2025, 1, 6), day(2025, 1, 10)),
	})

	assert.ErrorIs(t, err, domain.ErrMissingRoster)
}

func TestProjectTeam_UnknownMemberLocation(t *testing.T) {
	team := domain.Team{TeamID: uuid.New(), Members: []domain.Member{member("eve", "Atlantis")}}

	_, err := ProjectTeam(TeamCapacityInput{Team: team, Range: span(day(2025, 1, 6), day(2025, 1, 10))})

	assert.ErrorIs(t, err, domain.ErrUnknownLocation)
}
