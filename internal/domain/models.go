package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout формат дат во внешних запросах (yyyy-MM-dd).
const DateLayout = "2006-01-02"

type Location string

const (
	LocationUS     Location = "US"
	LocationIndia  Location = "India"
	LocationGlobal Location = "Global"
)

// Valid сообщает, известна ли локация.
func (l Location) Valid() bool {
	switch l {
	case LocationUS, LocationIndia, LocationGlobal:
		return true
	}
	return false
}

// MemberValid локация участника: US или India. Global бывает только у праздников.
func (l Location) MemberValid() bool {
	return l == LocationUS || l == LocationIndia
}

type Team struct {
	TeamID   uuid.UUID `db:"team_id" json:"team_id"`
	TeamName string    `db:"team_name" json:"team_name"`
	Members  []Member  `json:"members"`
}

type Member struct {
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	TeamID           uuid.UUID `db:"team_id" json:"-"`
	Name             string    `db:"name" json:"name"`
	Email            string    `db:"email" json:"email"`
	Designation      string    `db:"designation" json:"designation"`
	Location         Location  `db:"location" json:"location"`
	TrackerAccountID string    `db:"tracker_account_id" json:"tracker_account_id,omitempty"`
}

type Holiday struct {
	HolidayID uuid.UUID `db:"holiday_id" json:"holiday_id"`
	Name      string    `db:"name" json:"name"`
	Date      time.Time `db:"date" json:"date"`
	Location  Location  `db:"location" json:"location"`
	Hours     int       `db:"hours" json:"hours"`
	Recurring bool      `db:"recurring" json:"recurring"`
}

type PTOType string

const (
	PTOVacation PTOType = "vacation"
	PTOSick     PTOType = "sick"
	PTOPersonal PTOType = "personal"
	PTOOther    PTOType = "other"
)

type PTOStatus string

const (
	PTOPending  PTOStatus = "pending"
	PTOApproved PTOStatus = "approved"
	PTORejected PTOStatus = "rejected"
)

type PTORecord struct {
	PTOID         uuid.UUID `db:"pto_id" json:"pto_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	TeamID        uuid.UUID `db:"team_id" json:"team_id"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	EndDate       time.Time `db:"end_date" json:"end_date"`
	DurationHours float64   `db:"duration_hours" json:"duration_hours"`
	Type          PTOType   `db:"type" json:"type"`
	Status        PTOStatus `db:"status" json:"status"`
}

// Issue снимок задачи из трекера. Движок его не изменяет.
type Issue struct {
	Key                   string     `json:"key"`
	Assignee              uuid.UUID  `json:"assignee"`
	Status                string     `json:"status"`
	StoryPoints           float64    `json:"story_points"`
	OriginalEstimateHours float64    `json:"original_estimate_hours"`
	TimeSpentHours        float64    `json:"time_spent_hours"`
	Created               time.Time  `json:"created"`
	Updated               time.Time  `json:"updated"`
	DueDate               *time.Time `json:"due_date,omitempty"`
}

// DateRange включительный диапазон календарных дат.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange нормализует границы до полуночи UTC.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
}

// Contains проверяет попадание даты в диапазон.
func (r DateRange) Contains(t time.Time) bool {
	d := TruncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps проверяет пересечение с отрезком [start, end].
func (r DateRange) Overlaps(start, end time.Time) bool {
	return !TruncateDay(start).After(r.End) && !TruncateDay(end).Before(r.Start)
}

// Days количество календарных дней в диапазоне.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// TruncateDay приводит момент времени к календарной дате в UTC.
// Берутся год, месяц и день в исходной зоне.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScopeFilter ограничивает расчёт командой и, опционально, участником.
type ScopeFilter struct {
	TeamID uuid.UUID
	UserID *uuid.UUID
}

// TeamScope фильтр по всей команде.
func TeamScope(teamID uuid.UUID) ScopeFilter {
	return ScopeFilter{TeamID: teamID}
}

// MemberScope фильтр по одному участнику.
func MemberScope(teamID, userID uuid.UUID) ScopeFilter {
	id := userID
	return ScopeFilter{TeamID: teamID, UserID: &id}
}

// Matches сообщает, попадает ли исполнитель в фильтр.
func (s ScopeFilter) Matches(assignee uuid.UUID) bool {
	return s.UserID == nil || *s.UserID == assignee
}
