package engine

import (
	"math"
	"strings"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

type statusRule struct {
	match    func(status string) bool
	category domain.StatusCategory
}

// statusRules проверяются сверху вниз, первое совпадение выигрывает.
// Порядок значим: "Ready for QA" должен попасть в readyForQA раньше правила "ready".
var statusRules = []statusRule{
	{containsAny("done", "closed", "resolved"), domain.StatusDone},
	{containsAny("inprogress", "indevelopment"), domain.StatusInProgress},
	{containsAny("review"), domain.StatusInCodeReview},
	{containsAny("testing", "qa"), domain.StatusReadyForQA},
	{containsAny("blocked", "onhold"), domain.StatusBlocked},
	{containsAny("todo", "backlog"), domain.StatusToDo},
	{containsAny("open"), domain.StatusOpen},
	{containsAny("ready"), domain.StatusReadyForQA},
}

var statusNormalizer = strings.NewReplacer(" ", "", "-", "", "_", "")

// ClassifyStatus относит сырой статус трекера к категории.
func ClassifyStatus(status string) domain.StatusCategory {
	normalized := statusNormalizer.Replace(strings.ToLower(status))
	for _, rule := range statusRules {
		if rule.match(normalized) {
			return rule.category
		}
	}
	return domain.StatusOther
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// Reduce сворачивает задачи в суммы. Даты не фильтруются: список уже
// ограничен периодом на стороне трекера. Задачи с одинаковым ключом учитываются один раз.
func Reduce(issues []domain.Issue, scope domain.ScopeFilter) domain.TicketTotals {
	totals := domain.TicketTotals{StatusBreakdown: domain.StatusBreakdown{}}
	seen := make(map[string]struct{}, len(issues))

	for _, issue := range issues {
		if !scope.Matches(issue.Assignee) {
			continue
		}
		if issue.Key != "" {
			if _, dup := seen[issue.Key]; dup {
				continue
			}
			seen[issue.Key] = struct{}{}
		}

		totals.IssuesCompleted++
		totals.StoryPoints += math.Max(issue.StoryPoints, 0)
		totals.TimeSpentHours += math.Max(issue.TimeSpentHours, 0)
		totals.OriginalEstimateHours += math.Max(issue.OriginalEstimateHours, 0)
		totals.StatusBreakdown[ClassifyStatus(issue.Status)]++
	}

	return totals
}
