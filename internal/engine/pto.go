package engine

import (
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// PTOHours сумма часов одобренных PTO участника, пересекающих диапазон.
// Запись учитывается целиком, без пропорционального деления.
func PTOHours(userID uuid.UUID, rng domain.DateRange, records []domain.PTORecord) (float64, error) {
	rng = domain.NewDateRange(rng.Start, rng.End)
	if err := validateRange(rng); err != nil {
		return 0, err
	}

	matched := lo.Filter(records, func(r domain.PTORecord, _ int) bool {
		return r.UserID == userID &&
			r.Status == domain.PTOApproved &&
			rng.Overlaps(r.StartDate, r.EndDate)
	})

	return lo.SumBy(matched, func(r domain.PTORecord) float64 {
		return r.DurationHours
	}), nil
}
