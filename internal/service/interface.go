package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// ServiceInterface определяет методы бизнес-логики.
type ServiceInterface interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeam(ctx context.Context, teamID uuid.UUID) (*domain.Team, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)

	CreateHoliday(ctx context.Context, holiday *domain.Holiday) error
	ListHolidays(ctx context.Context, location domain.Location, rng domain.DateRange) ([]domain.Holiday, error)
	DeleteHoliday(ctx context.Context, holidayID uuid.UUID) error

	CreatePTO(ctx context.Context, record *domain.PTORecord) error
	SetPTOStatus(ctx context.Context, ptoID uuid.UUID, status domain.PTOStatus) (*domain.PTORecord, error)

	GenerateTeamworkInsights(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) (*domain.TeamInsights, error)
	CalculateFutureCapacity(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) (*domain.CapacityResult, error)
	QueryTimeTrend(ctx context.Context, scope domain.ScopeFilter, rng domain.DateRange) (*domain.TimeTrend, error)

	GenerateWeeklySnapshots(ctx context.Context, rng domain.DateRange) (int, error)
	ListSnapshots(ctx context.Context, teamID uuid.UUID, limit int) ([]domain.InsightSnapshot, error)
}

// IssueSource источник задач трекера.
type IssueSource interface {
	// WorkedIssues задачи участника, обновлённые в диапазоне.
	WorkedIssues(ctx context.Context, member domain.Member, rng domain.DateRange) ([]domain.Issue, error)
	// OpenIssues незакрытые задачи участника.
	OpenIssues(ctx context.Context, member domain.Member) ([]domain.Issue, error)
}

// Compile-time проверка.
var _ ServiceInterface = (*InsightsService)(nil)
