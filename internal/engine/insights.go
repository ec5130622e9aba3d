package engine

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

type AggregateInput struct {
	Team        domain.Team
	Range       domain.DateRange
	Issues      []domain.Issue
	PTO         []domain.PTORecord
	Holidays    []domain.Holiday
	HoursPerDay float64
	// Workers > 1 считает участников параллельно. Результат от этого не зависит.
	Workers int
}

// Aggregate строит отчёт по команде: метрики каждого участника, суммы и средние.
// Загрузка и burn rate команды пересчитываются из сумм, а не усредняются.
func Aggregate(in AggregateInput) (domain.TeamInsights, error) {
	if len(in.Team.Members) == 0 {
		return domain.TeamInsights{}, fmt.Errorf("%w: team %s", domain.ErrMissingRoster, in.Team.TeamID)
	}
	rng := domain.NewDateRange(in.Range.Start, in.Range.End)
	if err := validateRange(rng); err != nil {
		return domain.TeamInsights{}, err
	}
	in.Range = rng

	members := make([]domain.MemberMetrics, len(in.Team.Members))

	var g errgroup.Group
	if in.Workers > 0 {
		g.SetLimit(in.Workers)
	} else {
		g.SetLimit(1)
	}
	for i, m := range in.Team.Members {
		g.Go(func() error {
			mm, err := memberMetrics(m, in)
			if err != nil {
				return fmt.Errorf("member %s: %w", m.UserID, err)
			}
			members[i] = mm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.TeamInsights{}, err
	}

	team, breakdown := teamMetrics(members)

	return domain.TeamInsights{
		TeamID:          in.Team.TeamID,
		TeamName:        in.Team.TeamName,
		Range:           rng,
		Team:            team,
		Members:         members,
		StatusBreakdown: breakdown,
	}, nil
}

func memberMetrics(m domain.Member, in AggregateInput) (domain.MemberMetrics, error) {
	totals := Reduce(in.Issues, domain.MemberScope(in.Team.TeamID, m.UserID))

	cal, err := Calendar(in.Range, m.Location, in.Holidays, in.HoursPerDay)
	if err != nil {
		return domain.MemberMetrics{}, err
	}
	pto, err := PTOHours(m.UserID, in.Range, in.PTO)
	if err != nil {
		return domain.MemberMetrics{}, err
	}
	ratios := Derive(totals, cal.WorkingHours)

	return domain.MemberMetrics{
		UserID:                m.UserID,
		Name:                  m.Name,
		IssuesCompleted:       totals.IssuesCompleted,
		StoryPoints:           totals.StoryPoints,
		TimeSpentHours:        totals.TimeSpentHours,
		OriginalEstimateHours: totals.OriginalEstimateHours,
		WorkingHours:          cal.WorkingHours,
		PTOHours:              pto,
		HolidayHours:          cal.HolidayHours,
		UtilizationPct:        ratios.UtilizationPct,
		BurnRate:              ratios.BurnRate,
		TimeActualVsEstimate:  ratios.TimeActualVsEstimate,
		StatusBreakdown:       totals.StatusBreakdown,
	}, nil
}

func teamMetrics(members []domain.MemberMetrics) (domain.TeamMetrics, domain.StatusBreakdown) {
	team := domain.TeamMetrics{MemberCount: len(members)}
	breakdown := domain.StatusBreakdown{}

	storyPoints := make([]float64, len(members))
	timeSpent := make([]float64, len(members))
	utilization := make([]float64, len(members))

	for i, m := range members {
		team.IssuesCompleted += m.IssuesCompleted
		team.StoryPoints += m.StoryPoints
		team.TimeSpentHours += m.TimeSpentHours
		team.OriginalEstimateHours += m.OriginalEstimateHours
		team.WorkingHours += m.WorkingHours
		team.PTOHours += m.PTOHours
		team.HolidayHours += m.HolidayHours
		breakdown.Merge(m.StatusBreakdown)

		storyPoints[i] = m.StoryPoints
		timeSpent[i] = m.TimeSpentHours
		utilization[i] = m.UtilizationPct
	}

	ratios := Derive(domain.TicketTotals{
		StoryPoints:           team.StoryPoints,
		TimeSpentHours:        team.TimeSpentHours,
		OriginalEstimateHours: team.OriginalEstimateHours,
	}, team.WorkingHours)
	team.UtilizationPct = ratios.UtilizationPct
	team.BurnRate = ratios.BurnRate
	team.TimeActualVsEstimate = ratios.TimeActualVsEstimate

	team.AvgStoryPoints = Round2(stat.Mean(storyPoints, nil))
	team.AvgTimeSpentHours = Round2(stat.Mean(timeSpent, nil))
	team.AvgUtilizationPct = Round2(stat.Mean(utilization, nil))

	return team, breakdown
}
