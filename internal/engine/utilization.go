package engine

import (
	"math"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// Derive считает производные показатели. Нулевой знаменатель даёт 0.
func Derive(totals domain.TicketTotals, workingHours float64) domain.Ratios {
	return domain.Ratios{
		UtilizationPct:       Round2(ratio(totals.TimeSpentHours, workingHours) * 100),
		BurnRate:             Round2(ratio(totals.StoryPoints, totals.TimeSpentHours)),
		TimeActualVsEstimate: Round2(ratio(totals.TimeSpentHours, totals.OriginalEstimateHours)),
	}
}

// Round2 округление до двух знаков, половина вверх.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	// 1e-9 компенсирует двоичное представление (1.005 -> 1.01).
	return math.Floor(v*100+0.5+1e-9) / 100
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
