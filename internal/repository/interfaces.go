package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, teamID uuid.UUID) (*domain.Team, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	TeamExists(ctx context.Context, teamName string) (bool, error)
}

type MemberRepository interface {
	GetTeamMembers(ctx context.Context, teamID uuid.UUID) ([]domain.Member, error)
	GetMemberByID(ctx context.Context, userID uuid.UUID) (*domain.Member, error)
}

type HolidayRepository interface {
	CreateHoliday(ctx context.Context, holiday *domain.Holiday) error
	ListHolidays(ctx context.Context, locations []domain.Location, rng domain.DateRange) ([]domain.Holiday, error)
	DeleteHoliday(ctx context.Context, holidayID uuid.UUID) error
}

type PTORepository interface {
	CreatePTO(ctx context.Context, record *domain.PTORecord) error
	GetPTOByID(ctx context.Context, ptoID uuid.UUID) (*domain.PTORecord, error)
	UpdatePTOStatus(ctx context.Context, ptoID uuid.UUID, status domain.PTOStatus) error
	ListTeamPTO(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) ([]domain.PTORecord, error)
}

type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot *domain.InsightSnapshot) error
	ListSnapshots(ctx context.Context, teamID uuid.UUID, limit int) ([]domain.InsightSnapshot, error)
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

// RepositoryInterface объединяет все интерфейсы.
type RepositoryInterface interface {
	TeamRepository
	MemberRepository
	HolidayRepository
	PTORepository
	SnapshotRepository
}
