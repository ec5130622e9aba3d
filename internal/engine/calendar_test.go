package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func span(start, end time.Time) domain.DateRange {
	return domain.DateRange{Start: start, End: end}
}

func TestWorkingHours_MondayToFriday(t *testing.T) {
	hours, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 10)), domain.LocationUS, nil, 8)

	require.NoError(t, err)
	assert.Equal(t, 40.0, hours)
}

func TestWorkingHours_WeekWithGlobalHoliday(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Company day", Date: day(2025, 1, 8), Location: domain.LocationGlobal, Hours: 8},
	}

	hours, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 12)), domain.LocationIndia, holidays, 8)

	require.NoError(t, err)
	assert.Equal(t, 32.0, hours)
}

func TestWorkingHours_PartialHolidayReducesDay(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Early close", Date: day(2025, 1, 6), Location: domain.LocationUS, Hours: 2},
	}

	hours, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 6)), domain.LocationUS, holidays, 8)

	require.NoError(t, err)
	assert.Equal(t, 6.0, hours)
}

func TestWorkingHours_SameDateHolidaysNotDoubleSubtracted(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Local", Date: day(2025, 1, 7), Location: domain.LocationUS, Hours: 4},
		{Name: "Global", Date: day(2025, 1, 7), Location: domain.LocationGlobal, Hours: 4},
		{Name: "Duplicate", Date: day(2025, 1, 7), Location: domain.LocationUS, Hours: 2},
	}

	b, err := Calendar(span(day(2025, 1, 6), day(2025, 1, 10)), domain.LocationUS, holidays, 8)

	require.NoError(t, err)
	assert.Equal(t, 36.0, b.WorkingHours)
	assert.Equal(t, 4.0, b.HolidayHours)
	assert.Equal(t, 1, b.HolidayDays)
}

func TestWorkingHours_OtherLocationHolidayIgnored(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Diwali", Date: day(2025, 1, 7), Location: domain.LocationIndia, Hours: 8},
	}

	hours, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 10)), domain.LocationUS, holidays, 8)

	require.NoError(t, err)
	assert.Equal(t, 40.0, hours)
}

func TestWorkingHours_WeekendHolidayHasNoEffect(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Saturday holiday", Date: day(2025, 1, 11), Location: domain.LocationGlobal, Hours: 8},
	}

	b, err := Calendar(span(day(2025, 1, 6), day(2025, 1, 12)), domain.LocationUS, holidays, 8)

	require.NoError(t, err)
	assert.Equal(t, 40.0, b.WorkingHours)
	assert.Equal(t, 0.0, b.HolidayHours)
	assert.Equal(t, 2, b.WeekendDays)
	assert.Equal(t, 5, b.WorkingDays)
}

func TestWorkingHours_SingleWeekendDay(t *testing.T) {
	hours, err := WorkingHours(span(day(2025, 1, 11), day(2025, 1, 11)), domain.LocationUS, nil, 8)

	require.NoError(t, err)
	assert.Equal(t, 0.0, hours)
}

func TestWorkingHours_HolidayLongerThanDayClamped(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Full", Date: day(2025, 1, 6), Location: domain.LocationUS, Hours: 8},
	}

	hours, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 6)), domain.LocationUS, holidays, 6)

	require.NoError(t, err)
	assert.Equal(t, 0.0, hours)
}

func TestWorkingHours_DefaultHoursPerDay(t *testing.T) {
	hours, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 7)), domain.LocationUS, nil, 0)

	require.NoError(t, err)
	assert.Equal(t, 16.0, hours)
}

func TestWorkingHours_IgnoresTimeOfDayAndZone(t *testing.T) {
	zone := time.FixedZone("PST", -8*3600)
	rng := span(time.Date(2025, 3, 7, 23, 30, 0, 0, zone), time.Date(2025, 3, 10, 1, 0, 0, 0, zone))

	hours, err := WorkingHours(rng, domain.LocationUS, nil, 8)

	require.NoError(t, err)
	assert.Equal(t, 16.0, hours)
}

func TestWorkingHours_InvalidRange(t *testing.T) {
	_, err := WorkingHours(span(day(2025, 1, 10), day(2025, 1, 6)), domain.LocationUS, nil, 8)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = WorkingHours(domain.DateRange{}, domain.LocationUS, nil, 8)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestWorkingHours_GlobalMemberLocationRejected(t *testing.T) {
	_, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 10)), domain.LocationGlobal, nil, 8)

	assert.ErrorIs(t, err, domain.ErrUnknownLocation)
}

func TestWorkingHours_UnknownLocation(t *testing.T) {
	_, err := WorkingHours(span(day(2025, 1, 6), day(2025, 1, 10)), domain.Location("Mars"), nil, 8)
	assert.ErrorIs(t, err, domain.ErrUnknownLocation)

	holidays := []domain.Holiday{{Name: "Bad", Date: day(2025, 1, 7), Location: "UK", Hours: 8}}
	_, err = WorkingHours(span(day(2025, 1, 6), day(2025, 1, 10)), domain.LocationUS, holidays, 8)
	assert.ErrorIs(t, err, domain.ErrUnknownLocation)
}

func TestExpandRecurring(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "New Year", Date: day(2020, 1, 1), Location: domain.LocationGlobal, Hours: 8, Recurring: true},
		{Name: "Christmas", Date: day(2019, 12, 25), Location: domain.LocationGlobal, Hours: 8, Recurring: true},
		{Name: "Leap", Date: day(2024, 2, 29), Location: domain.LocationUS, Hours: 8, Recurring: true},
		{Name: "Hackathon", Date: day(2025, 2, 14), Location: domain.LocationUS, Hours: 4},
		{Name: "Offsite", Date: day(2025, 6, 3), Location: domain.LocationUS, Hours: 4},
	}

	expanded := ExpandRecurring(holidays, span(day(2024, 12, 1), day(2025, 3, 1)))

	dates := make([]time.Time, 0, len(expanded))
	for _, h := range expanded {
		dates = append(dates, h.Date)
	}
	assert.Equal(t, []time.Time{
		day(2025, 1, 1),
		day(2024, 12, 25),
		day(2025, 2, 14),
	}, dates)
}

func TestExpandRecurring_OutsideRangeDropped(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Christmas", Date: day(2019, 12, 25), Location: domain.LocationGlobal, Hours: 8, Recurring: true},
	}

	expanded := ExpandRecurring(holidays, span(day(2025, 1, 1), day(2025, 3, 31)))

	assert.Empty(t, expanded)
}

func TestExpandRecurring_LeapDay(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "Leap", Date: day(2020, 2, 29), Location: domain.LocationUS, Hours: 8, Recurring: true},
	}

	expanded := ExpandRecurring(holidays, span(day(2024, 2, 1), day(2025, 3, 31)))

	require.Len(t, expanded, 1)
	assert.Equal(t, day(2024, 2, 29), expanded[0].Date)
}

func TestExpandRecurring_FeedsCalendar(t *testing.T) {
	holidays := []domain.Holiday{
		{Name: "New Year", Date: day(2019, 1, 1), Location: domain.LocationGlobal, Hours: 8, Recurring: true},
	}
	rng := span(day(2024, 12, 30), day(2025, 1, 3))

	hours, err := WorkingHours(rng, domain.LocationUS, ExpandRecurring(holidays, rng), 8)

	require.NoError(t, err)
	assert.Equal(t, 32.0, hours)
}
