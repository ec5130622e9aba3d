package engine

import (
	"time"

	"github.com/samber/lo"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// TimeTrend недельные интервалы (с понедельника) по дате обновления задачи.
// Первый и последний интервалы обрезаются границами диапазона.
func TimeTrend(issues []domain.Issue, scope domain.ScopeFilter, rng domain.DateRange) ([]domain.TrendPoint, error) {
	rng = domain.NewDateRange(rng.Start, rng.End)
	if err := validateRange(rng); err != nil {
		return nil, err
	}

	scoped := lo.Filter(issues, func(issue domain.Issue, _ int) bool {
		return scope.Matches(issue.Assignee) && rng.Contains(issue.Updated)
	})

	var points []domain.TrendPoint
	for start := rng.Start; !start.After(rng.End); {
		end := weekEnd(start)
		if end.After(rng.End) {
			end = rng.End
		}
		period := domain.DateRange{Start: start, End: end}

		bucket := lo.Filter(scoped, func(issue domain.Issue, _ int) bool {
			return period.Contains(issue.Updated)
		})
		totals := Reduce(bucket, scope)
		ratios := Derive(totals, 0)

		points = append(points, domain.TrendPoint{
			PeriodStart:           start,
			PeriodEnd:             end,
			Issues:                totals.IssuesCompleted,
			StoryPoints:           totals.StoryPoints,
			TimeSpentHours:        totals.TimeSpentHours,
			OriginalEstimateHours: totals.OriginalEstimateHours,
			TimeActualVsEstimate:  ratios.TimeActualVsEstimate,
			BurnRate:              ratios.BurnRate,
		})

		start = end.AddDate(0, 0, 1)
	}

	return points, nil
}

// weekEnd воскресенье недели, содержащей day.
func weekEnd(day time.Time) time.Time {
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}
