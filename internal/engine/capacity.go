package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// AtCapacityThresholdPct загрузка, начиная с которой участник считается загруженным полностью.
const AtCapacityThresholdPct = 90.0

type CapacityInput struct {
	Member      domain.Member
	Range       domain.DateRange
	Issues      []domain.Issue
	PTO         []domain.PTORecord
	Holidays    []domain.Holiday
	HoursPerDay float64
}

// Project раскладывает доступные часы участника на PTO, назначенную работу,
// свободный запас и перегрузку.
func Project(in CapacityInput) (domain.MemberCapacity, error) {
	available, err := WorkingHours(in.Range, in.Member.Location, in.Holidays, in.HoursPerDay)
	if err != nil {
		return domain.MemberCapacity{}, err
	}
	pto, err := PTOHours(in.Member.UserID, in.Range, in.PTO)
	if err != nil {
		return domain.MemberCapacity{}, err
	}
	remaining := TimeRemainingHours(in.Member.UserID, in.Issues)

	return split(in.Member, available, pto, remaining), nil
}

func split(m domain.Member, available, pto, remaining float64) domain.MemberCapacity {
	net := math.Max(available-pto, 0)

	c := domain.MemberCapacity{
		UserID:             m.UserID,
		Name:               m.Name,
		Location:           m.Location,
		AvailableHours:     available,
		PTOHours:           pto,
		TimeRemainingHours: remaining,
		NetAvailableHours:  net,
	}

	if remaining > net {
		c.AssignedWithinCapacityHours = net
		c.RemainingBandwidthHours = 0
		c.OverCapacityHours = remaining - net
	} else {
		c.AssignedWithinCapacityHours = remaining
		c.RemainingBandwidthHours = net - remaining
		c.OverCapacityHours = 0
	}

	c.UtilizationPct = Round2(ratio(c.AssignedWithinCapacityHours, net) * 100)

	switch {
	case c.OverCapacityHours > 0:
		c.Status = domain.CapacityOver
	case c.UtilizationPct >= AtCapacityThresholdPct:
		c.Status = domain.CapacityAt
	default:
		c.Status = domain.CapacityUnder
	}

	return c
}

// TimeRemainingHours остаток оценки по незакрытым задачам участника.
// Перерасход по задаче не уменьшает остаток других задач.
func TimeRemainingHours(userID uuid.UUID, issues []domain.Issue) float64 {
	var total float64
	for _, issue := range issues {
		if issue.Assignee != userID || ClassifyStatus(issue.Status) == domain.StatusDone {
			continue
		}
		total += math.Max(issue.OriginalEstimateHours-issue.TimeSpentHours, 0)
	}
	return total
}

type TeamCapacityInput struct {
	Team        domain.Team
	Range       domain.DateRange
	Issues      []domain.Issue
	PTO         []domain.PTORecord
	Holidays    []domain.Holiday
	HoursPerDay float64
}

// ProjectTeam считает ёмкость каждого участника и итоги команды.
func ProjectTeam(in TeamCapacityInput) (domain.CapacityResult, error) {
	if len(in.Team.Members) == 0 {
		return domain.CapacityResult{}, fmt.Errorf("%w: team %s", domain.ErrMissingRoster, in.Team.TeamID)
	}
	rng := domain.NewDateRange(in.Range.Start, in.Range.End)
	if err := validateRange(rng); err != nil {
		return domain.CapacityResult{}, err
	}

	result := domain.CapacityResult{
		TeamID:   in.Team.TeamID,
		TeamName: in.Team.TeamName,
		Range:    rng,
		Members:  make([]domain.MemberCapacity, 0, len(in.Team.Members)),
	}

	for _, m := range in.Team.Members {
		c, err := Project(CapacityInput{
			Member:      m,
			Range:       rng,
			Issues:      in.Issues,
			PTO:         in.PTO,
			Holidays:    in.Holidays,
			HoursPerDay: in.HoursPerDay,
		})
		if err != nil {
			return domain.CapacityResult{}, fmt.Errorf("member %s: %w", m.UserID, err)
		}
		result.Members = append(result.Members, c)

		t := &result.Totals
		t.AvailableHours += c.AvailableHours
		t.PTOHours += c.PTOHours
		t.TimeRemainingHours += c.TimeRemainingHours
		t.NetAvailableHours += c.NetAvailableHours
		t.AssignedWithinCapacityHours += c.AssignedWithinCapacityHours
		t.RemainingBandwidthHours += c.RemainingBandwidthHours
		t.OverCapacityHours += c.OverCapacityHours
		if c.Status == domain.CapacityOver {
			t.OverCapacityMembers++
		}
	}

	result.Totals.UtilizationPct = Round2(ratio(result.Totals.AssignedWithinCapacityHours, result.Totals.NetAvailableHours) * 100)
	result.StatusBreakdown = Reduce(rosterIssues(in.Team, in.Issues), domain.TeamScope(in.Team.TeamID)).StatusBreakdown

	return result, nil
}

// rosterIssues оставляет задачи, назначенные участникам команды.
func rosterIssues(team domain.Team, issues []domain.Issue) []domain.Issue {
	roster := lo.SliceToMap(team.Members, func(m domain.Member) (uuid.UUID, struct{}) {
		return m.UserID, struct{}{}
	})
	return lo.Filter(issues, func(issue domain.Issue, _ int) bool {
		_, ok := roster[issue.Assignee]
		return ok
	})
}
