// Package engine считает рабочие часы, PTO, метрики задач, загрузку и ёмкость команды.
// Все функции чистые: входные данные уже получены вызывающим кодом.
package engine

import (
	"fmt"
	"time"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// DefaultHoursPerDay длительность рабочего дня по умолчанию.
const DefaultHoursPerDay = 8.0

// CalendarBreakdown разбиение календаря диапазона.
type CalendarBreakdown struct {
	WorkingDays  int
	WeekendDays  int
	HolidayDays  int
	WorkingHours float64
	HolidayHours float64
}

// WorkingHours рабочие часы в [rng.Start, rng.End] для локации.
func WorkingHours(rng domain.DateRange, loc domain.Location, holidays []domain.Holiday, hoursPerDay float64) (float64, error) {
	b, err := Calendar(rng, loc, holidays, hoursPerDay)
	if err != nil {
		return 0, err
	}
	return b.WorkingHours, nil
}

// Calendar обходит каждый день диапазона включительно. Выходные дают 0,
// праздник уменьшает день на свои часы, но не ниже нуля.
func Calendar(rng domain.DateRange, loc domain.Location, holidays []domain.Holiday, hoursPerDay float64) (CalendarBreakdown, error) {
	rng = domain.NewDateRange(rng.Start, rng.End)
	if err := validateRange(rng); err != nil {
		return CalendarBreakdown{}, err
	}
	if !loc.MemberValid() {
		return CalendarBreakdown{}, fmt.Errorf("%w: %q", domain.ErrUnknownLocation, loc)
	}
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultHoursPerDay
	}

	deductions, err := holidayDeductions(loc, holidays)
	if err != nil {
		return CalendarBreakdown{}, err
	}

	var b CalendarBreakdown
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		if isWeekend(day) {
			b.WeekendDays++
			continue
		}

		hours := hoursPerDay
		if off, ok := deductions[day]; ok {
			hours -= float64(off)
			if hours < 0 {
				hours = 0
			}
			b.HolidayDays++
			b.HolidayHours += hoursPerDay - hours
		}
		if hours > 0 {
			b.WorkingDays++
		}
		b.WorkingHours += hours
	}

	return b, nil
}

// holidayDeductions часы вычета по датам. Праздники одной даты не суммируются,
// берётся наибольший вычет.
func holidayDeductions(loc domain.Location, holidays []domain.Holiday) (map[time.Time]int, error) {
	out := make(map[time.Time]int, len(holidays))
	for _, h := range holidays {
		if !h.Location.Valid() {
			return nil, fmt.Errorf("%w: holiday %q has location %q", domain.ErrUnknownLocation, h.Name, h.Location)
		}
		if h.Location != loc && h.Location != domain.LocationGlobal {
			continue
		}
		if h.Hours <= 0 {
			continue
		}
		day := domain.TruncateDay(h.Date)
		if h.Hours > out[day] {
			out[day] = h.Hours
		}
	}
	return out, nil
}

// ExpandRecurring разворачивает повторяющиеся праздники в конкретные даты
// для каждого года диапазона. Возвращаются только даты внутри диапазона.
// 29 февраля пропускается в невисокосные годы.
func ExpandRecurring(holidays []domain.Holiday, rng domain.DateRange) []domain.Holiday {
	rng = domain.NewDateRange(rng.Start, rng.End)
	out := make([]domain.Holiday, 0, len(holidays))
	for _, h := range holidays {
		if !h.Recurring {
			if rng.Contains(h.Date) {
				out = append(out, h)
			}
			continue
		}
		_, month, day := h.Date.Date()
		for year := rng.Start.Year(); year <= rng.End.Year(); year++ {
			date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if date.Month() != month || !rng.Contains(date) {
				continue
			}
			inst := h
			inst.Date = date
			out = append(out, inst)
		}
	}
	return out
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func validateRange(rng domain.DateRange) error {
	if rng.Start.IsZero() || rng.End.IsZero() {
		return fmt.Errorf("%w: range bounds are required", domain.ErrInvalidRange)
	}
	if rng.End.Before(rng.Start) {
		return fmt.Errorf("%w: end %s is before start %s", domain.ErrInvalidRange,
			rng.End.Format(domain.DateLayout), rng.Start.Format(domain.DateLayout))
	}
	return nil
}
