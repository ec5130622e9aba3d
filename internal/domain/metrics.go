package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StatusCategory стадия workflow, в которую попадает статус задачи.
type StatusCategory string

const (
	StatusDone         StatusCategory = "done"
	StatusInProgress   StatusCategory = "inProgress"
	StatusInCodeReview StatusCategory = "inCodeReview"
	StatusReadyForQA   StatusCategory = "readyForQA"
	StatusBlocked      StatusCategory = "blocked"
	StatusToDo         StatusCategory = "toDo"
	StatusOpen         StatusCategory = "open"
	StatusOther        StatusCategory = "other"
)

// StatusBreakdown количество задач по категориям статусов.
type StatusBreakdown map[StatusCategory]int

// Merge прибавляет счётчики other к b.
func (b StatusBreakdown) Merge(other StatusBreakdown) {
	for k, v := range other {
		b[k] += v
	}
}

// TicketTotals суммы по списку задач.
type TicketTotals struct {
	IssuesCompleted       int             `json:"issues_completed"`
	StoryPoints           float64         `json:"story_points"`
	TimeSpentHours        float64         `json:"time_spent_hours"`
	OriginalEstimateHours float64         `json:"original_estimate_hours"`
	StatusBreakdown       StatusBreakdown `json:"status_breakdown"`
}

// Ratios производные показатели.
type Ratios struct {
	UtilizationPct       float64 `json:"utilization_pct"`
	BurnRate             float64 `json:"burn_rate"`
	TimeActualVsEstimate float64 `json:"time_actual_vs_estimate"`
}

// MemberMetrics показатели участника за период.
type MemberMetrics struct {
	UserID                uuid.UUID       `json:"user_id"`
	Name                  string          `json:"name"`
	IssuesCompleted       int             `json:"issues_completed"`
	StoryPoints           float64         `json:"story_points"`
	TimeSpentHours        float64         `json:"time_spent_hours"`
	OriginalEstimateHours float64         `json:"original_estimate_hours"`
	WorkingHours          float64         `json:"working_hours"`
	PTOHours              float64         `json:"pto_hours"`
	HolidayHours          float64         `json:"holiday_hours"`
	UtilizationPct        float64         `json:"utilization_pct"`
	BurnRate              float64         `json:"burn_rate"`
	TimeActualVsEstimate  float64         `json:"time_actual_vs_estimate"`
	StatusBreakdown       StatusBreakdown `json:"status_breakdown"`
}

// TeamMetrics суммы и средние по составу команды.
type TeamMetrics struct {
	MemberCount           int     `json:"member_count"`
	IssuesCompleted       int     `json:"issues_completed"`
	StoryPoints           float64 `json:"story_points"`
	TimeSpentHours        float64 `json:"time_spent_hours"`
	OriginalEstimateHours float64 `json:"original_estimate_hours"`
	WorkingHours          float64 `json:"working_hours"`
	PTOHours              float64 `json:"pto_hours"`
	HolidayHours          float64 `json:"holiday_hours"`
	UtilizationPct        float64 `json:"utilization_pct"`
	BurnRate              float64 `json:"burn_rate"`
	TimeActualVsEstimate  float64 `json:"time_actual_vs_estimate"`
	AvgStoryPoints        float64 `json:"avg_story_points"`
	AvgTimeSpentHours     float64 `json:"avg_time_spent_hours"`
	AvgUtilizationPct     float64 `json:"avg_utilization_pct"`
}

// TeamInsights отчёт по команде за период.
type TeamInsights struct {
	TeamID          uuid.UUID       `json:"team_id"`
	TeamName        string          `json:"team_name"`
	Range           DateRange       `json:"range"`
	Team            TeamMetrics     `json:"team_metrics"`
	Members         []MemberMetrics `json:"members"`
	StatusBreakdown StatusBreakdown `json:"status_breakdown"`
}

type CapacityStatus string

const (
	CapacityUnder CapacityStatus = "under"
	CapacityAt    CapacityStatus = "at"
	CapacityOver  CapacityStatus = "over"
)

// MemberCapacity разбиение доступных часов участника:
// PTO / назначенная работа / свободный запас / перегрузка.
type MemberCapacity struct {
	UserID                      uuid.UUID      `json:"user_id"`
	Name                        string         `json:"name"`
	Location                    Location       `json:"location"`
	AvailableHours              float64        `json:"available_hours"`
	PTOHours                    float64        `json:"pto_hours"`
	TimeRemainingHours          float64        `json:"time_remaining_hours"`
	NetAvailableHours           float64        `json:"net_available_hours"`
	AssignedWithinCapacityHours float64        `json:"assigned_within_capacity_hours"`
	RemainingBandwidthHours     float64        `json:"remaining_bandwidth_hours"`
	OverCapacityHours           float64        `json:"over_capacity_hours"`
	UtilizationPct              float64        `json:"utilization_pct"`
	Status                      CapacityStatus `json:"status"`
}

// CapacityTotals итоги по команде.
type CapacityTotals struct {
	AvailableHours              float64 `json:"available_hours"`
	PTOHours                    float64 `json:"pto_hours"`
	TimeRemainingHours          float64 `json:"time_remaining_hours"`
	NetAvailableHours           float64 `json:"net_available_hours"`
	AssignedWithinCapacityHours float64 `json:"assigned_within_capacity_hours"`
	RemainingBandwidthHours     float64 `json:"remaining_bandwidth_hours"`
	OverCapacityHours           float64 `json:"over_capacity_hours"`
	UtilizationPct              float64 `json:"utilization_pct"`
	OverCapacityMembers         int     `json:"over_capacity_members"`
}

type CapacityResult struct {
	TeamID          uuid.UUID        `json:"team_id"`
	TeamName        string           `json:"team_name"`
	Range           DateRange        `json:"range"`
	Members         []MemberCapacity `json:"members"`
	Totals          CapacityTotals   `json:"totals"`
	StatusBreakdown StatusBreakdown  `json:"status_breakdown"`
}

// TrendPoint показатели за один недельный интервал.
type TrendPoint struct {
	PeriodStart           time.Time `json:"period_start"`
	PeriodEnd             time.Time `json:"period_end"`
	Issues                int       `json:"issues"`
	StoryPoints           float64   `json:"story_points"`
	TimeSpentHours        float64   `json:"time_spent_hours"`
	OriginalEstimateHours float64   `json:"original_estimate_hours"`
	TimeActualVsEstimate  float64   `json:"time_actual_vs_estimate"`
	BurnRate              float64   `json:"burn_rate"`
}

type TimeTrend struct {
	TeamID uuid.UUID    `json:"team_id"`
	UserID *uuid.UUID   `json:"user_id,omitempty"`
	Range  DateRange    `json:"range"`
	Points []TrendPoint `json:"points"`
}

// InsightSnapshot сохранённый еженедельный отчёт.
type InsightSnapshot struct {
	SnapshotID  uuid.UUID       `db:"snapshot_id" json:"snapshot_id"`
	TeamID      uuid.UUID       `db:"team_id" json:"team_id"`
	PeriodStart time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time       `db:"period_end" json:"period_end"`
	Report      json.RawMessage `db:"report" json:"report"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
