package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/T1mof/team-capacity-service/internal/domain"
	"github.com/T1mof/team-capacity-service/internal/engine"
	"github.com/T1mof/team-capacity-service/internal/repository"
)

const (
	defaultFetchConcurrency = 4
	defaultSnapshotLimit    = 12
	maxSnapshotLimit        = 100
)

type Options struct {
	HoursPerDay      float64
	FetchConcurrency int
	AggregateWorkers int
}

type InsightsService struct {
	repo      repository.RepositoryInterface
	issues    IssueSource
	validator *domain.Validator
	opts      Options
}

func NewInsightsService(repo repository.RepositoryInterface, issues IssueSource, opts Options) *InsightsService {
	if issues == nil {
		issues = noIssues{}
	}
	if opts.HoursPerDay <= 0 {
		opts.HoursPerDay = engine.DefaultHoursPerDay
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = defaultFetchConcurrency
	}
	return &InsightsService{
		repo:      repo,
		issues:    issues,
		validator: domain.NewValidator(),
		opts:      opts,
	}
}

// ========================================
// Team Methods
// ========================================

func (s *InsightsService) CreateTeam(ctx context.Context, team *domain.Team) error {
	if err := s.validator.ValidateTeam(team); err != nil {
		slog.Warn("Team validation failed", "team_name", team.TeamName, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	exists, err := s.repo.TeamExists(ctx, team.TeamName)
	if err != nil {
		slog.Error("Failed to check team existence", "team_name", team.TeamName, "error", err)
		return err
	}
	if exists {
		slog.Warn("Team already exists", "team_name", team.TeamName)
		return domain.ErrTeamExists
	}

	if err := s.repo.CreateTeam(ctx, team); err != nil {
		slog.Error("Failed to create team", "team_name", team.TeamName, "error", err)
		return err
	}

	slog.Info("Team created", "team_name", team.TeamName, "members_count", len(team.Members))
	return nil
}

func (s *InsightsService) GetTeam(ctx context.Context, teamID uuid.UUID) (*domain.Team, error) {
	if teamID == uuid.Nil {
		return nil, fmt.Errorf("%w: team_id cannot be nil UUID", domain.ErrValidation)
	}

	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		slog.Error("Failed to get team", "team_id", teamID, "error", err)
		return nil, err
	}

	return team, nil
}

func (s *InsightsService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		slog.Error("Failed to list teams", "error", err)
		return nil, err
	}
	return teams, nil
}

// ========================================
// Holiday Methods
// ========================================

func (s *InsightsService) CreateHoliday(ctx context.Context, holiday *domain.Holiday) error {
	if err := s.validator.ValidateHoliday(holiday); err != nil {
		slog.Warn("Holiday validation failed", "name", holiday.Name, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	holiday.Date = domain.TruncateDay(holiday.Date)

	if err := s.repo.CreateHoliday(ctx, holiday); err != nil {
		slog.Error("Failed to create holiday", "name", holiday.Name, "error", err)
		return err
	}
	return nil
}

// ListHolidays возвращает конкретные даты праздников внутри диапазона, по возрастанию.
// Пустая локация означает все локации.
func (s *InsightsService) ListHolidays(ctx context.Context, location domain.Location, rng domain.DateRange) ([]domain.Holiday, error) {
	if err := s.validator.ValidateRange(rng); err != nil {
		return nil, err
	}

	locations := []domain.Location{domain.LocationUS, domain.LocationIndia, domain.LocationGlobal}
	if location != "" {
		if !location.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLocation, location)
		}
		locations = lo.Uniq([]domain.Location{location, domain.LocationGlobal})
	}

	holidays, err := s.repo.ListHolidays(ctx, locations, rng)
	if err != nil {
		slog.Error("Failed to list holidays", "location", location, "error", err)
		return nil, err
	}

	expanded := engine.ExpandRecurring(holidays, rng)
	slices.SortStableFunc(expanded, func(a, b domain.Holiday) int {
		return a.Date.Compare(b.Date)
	})
	return expanded, nil
}

func (s *InsightsService) DeleteHoliday(ctx context.Context, holidayID uuid.UUID) error {
	if holidayID == uuid.Nil {
		return fmt.Errorf("%w: holiday_id cannot be nil UUID", domain.ErrValidation)
	}

	if err := s.repo.DeleteHoliday(ctx, holidayID); err != nil {
		slog.Error("Failed to delete holiday", "holiday_id", holidayID, "error", err)
		return err
	}

	slog.Info("Holiday deleted", "holiday_id", holidayID)
	return nil
}

// ========================================
// PTO Methods
// ========================================

func (s *InsightsService) CreatePTO(ctx context.Context, record *domain.PTORecord) error {
	if record.Status == "" {
		record.Status = domain.PTOPending
	}
	if err := s.validator.ValidatePTO(record); err != nil {
		slog.Warn("PTO validation failed", "user_id", record.UserID, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	member, err := s.repo.GetMemberByID(ctx, record.UserID)
	if err != nil {
		slog.Error("Failed to get member", "user_id", record.UserID, "error", err)
		return err
	}
	if member.TeamID != record.TeamID {
		slog.Warn("Member is not in team", "user_id", record.UserID, "team_id", record.TeamID)
		return fmt.Errorf("%w: user %s is not in team %s", domain.ErrMemberNotFound, record.UserID, record.TeamID)
	}

	record.StartDate = domain.TruncateDay(record.StartDate)
	record.EndDate = domain.TruncateDay(record.EndDate)

	if err := s.repo.CreatePTO(ctx, record); err != nil {
		slog.Error("Failed to create PTO record", "user_id", record.UserID, "error", err)
		return err
	}
	return nil
}

func (s *InsightsService) SetPTOStatus(ctx context.Context, ptoID uuid.UUID, status domain.PTOStatus) (*domain.PTORecord, error) {
	if ptoID == uuid.Nil {
		return nil, fmt.Errorf("%w: pto_id cannot be nil UUID", domain.ErrValidation)
	}
	if err := s.validator.ValidatePTOStatus(status); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.repo.UpdatePTOStatus(ctx, ptoID, status); err != nil {
		slog.Error("Failed to update PTO status", "pto_id", ptoID, "status", status, "error", err)
		return nil, err
	}

	return s.repo.GetPTOByID(ctx, ptoID)
}

// ========================================
// Analytics Methods
// ========================================

func (s *InsightsService) GenerateTeamworkInsights(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) (*domain.TeamInsights, error) {
	in, err := s.loadTeamInputs(ctx, teamID, rng)
	if err != nil {
		return nil, err
	}

	issues, err := s.fetchIssues(ctx, in.team.Members, func(ctx context.Context, m domain.Member) ([]domain.Issue, error) {
		return s.issues.WorkedIssues(ctx, m, rng)
	})
	if err != nil {
		return nil, err
	}

	insights, err := engine.Aggregate(engine.AggregateInput{
		Team:        *in.team,
		Range:       rng,
		Issues:      issues,
		PTO:         in.pto,
		Holidays:    in.holidays,
		HoursPerDay: s.opts.HoursPerDay,
		Workers:     s.opts.AggregateWorkers,
	})
	if err != nil {
		slog.Warn("Failed to aggregate insights", "team_id", teamID, "error", err)
		return nil, err
	}

	slog.Info("Teamwork insights generated",
		"team_id", teamID,
		"members", len(insights.Members),
		"issues", len(issues),
	)
	return &insights, nil
}

func (s *InsightsService) CalculateFutureCapacity(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) (*domain.CapacityResult, error) {
	in, err := s.loadTeamInputs(ctx, teamID, rng)
	if err != nil {
		return nil, err
	}

	issues, err := s.fetchIssues(ctx, in.team.Members, s.issues.OpenIssues)
	if err != nil {
		return nil, err
	}

	result, err := engine.ProjectTeam(engine.TeamCapacityInput{
		Team:        *in.team,
		Range:       rng,
		Issues:      issues,
		PTO:         in.pto,
		Holidays:    in.holidays,
		HoursPerDay: s.opts.HoursPerDay,
	})
	if err != nil {
		slog.Warn("Failed to project capacity", "team_id", teamID, "error", err)
		return nil, err
	}

	slog.Info("Future capacity calculated",
		"team_id", teamID,
		"over_capacity_members", result.Totals.OverCapacityMembers,
	)
	return &result, nil
}

func (s *InsightsService) QueryTimeTrend(ctx context.Context, scope domain.ScopeFilter, rng domain.DateRange) (*domain.TimeTrend, error) {
	if scope.TeamID == uuid.Nil {
		return nil, fmt.Errorf("%w: team_id cannot be nil UUID", domain.ErrValidation)
	}
	if err := s.validator.ValidateRange(rng); err != nil {
		return nil, err
	}

	team, err := s.repo.GetTeamByID(ctx, scope.TeamID)
	if err != nil {
		slog.Error("Failed to get team", "team_id", scope.TeamID, "error", err)
		return nil, err
	}

	members := lo.Filter(team.Members, func(m domain.Member, _ int) bool {
		return scope.Matches(m.UserID)
	})
	if len(members) == 0 {
		if scope.UserID != nil {
			return nil, fmt.Errorf("%w: user %s is not in team %s", domain.ErrMemberNotFound, *scope.UserID, scope.TeamID)
		}
		return nil, fmt.Errorf("%w: team %s", domain.ErrMissingRoster, scope.TeamID)
	}

	issues, err := s.fetchIssues(ctx, members, func(ctx context.Context, m domain.Member) ([]domain.Issue, error) {
		return s.issues.WorkedIssues(ctx, m, rng)
	})
	if err != nil {
		return nil, err
	}

	points, err := engine.TimeTrend(issues, scope, rng)
	if err != nil {
		return nil, err
	}

	return &domain.TimeTrend{
		TeamID: scope.TeamID,
		UserID: scope.UserID,
		Range:  domain.NewDateRange(rng.Start, rng.End),
		Points: points,
	}, nil
}

// ========================================
// Snapshot Methods
// ========================================

// GenerateWeeklySnapshots сохраняет отчёты всех команд за период.
// Ошибка одной команды не останавливает остальные.
func (s *InsightsService) GenerateWeeklySnapshots(ctx context.Context, rng domain.DateRange) (int, error) {
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		slog.Error("Failed to list teams for snapshots", "error", err)
		return 0, err
	}

	var (
		saved int
		errs  []error
	)
	for _, team := range teams {
		if len(team.Members) == 0 {
			slog.Info("Skipping team without members", "team_id", team.TeamID)
			continue
		}

		insights, err := s.GenerateTeamworkInsights(ctx, team.TeamID, rng)
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", team.TeamID, err))
			continue
		}

		report, err := json.Marshal(insights)
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: marshal report: %w", team.TeamID, err))
			continue
		}

		snapshot := &domain.InsightSnapshot{
			TeamID:      team.TeamID,
			PeriodStart: insights.Range.Start,
			PeriodEnd:   insights.Range.End,
			Report:      report,
		}
		if err := s.repo.SaveSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", team.TeamID, err))
			continue
		}
		saved++
	}

	slog.Info("Weekly snapshots generated", "saved", saved, "failed", len(errs))
	return saved, errors.Join(errs...)
}

func (s *InsightsService) ListSnapshots(ctx context.Context, teamID uuid.UUID, limit int) ([]domain.InsightSnapshot, error) {
	if teamID == uuid.Nil {
		return nil, fmt.Errorf("%w: team_id cannot be nil UUID", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	limit = min(limit, maxSnapshotLimit)

	snapshots, err := s.repo.ListSnapshots(ctx, teamID, limit)
	if err != nil {
		slog.Error("Failed to list snapshots", "team_id", teamID, "error", err)
		return nil, err
	}
	return snapshots, nil
}

// ========================================
// Helper Methods
// ========================================

type teamInputs struct {
	team     *domain.Team
	pto      []domain.PTORecord
	holidays []domain.Holiday
}

// loadTeamInputs читает состав, PTO и праздники команды.
// Повторяющиеся праздники разворачиваются здесь, до вызова движка.
func (s *InsightsService) loadTeamInputs(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) (*teamInputs, error) {
	if teamID == uuid.Nil {
		return nil, fmt.Errorf("%w: team_id cannot be nil UUID", domain.ErrValidation)
	}
	if err := s.validator.ValidateRange(rng); err != nil {
		return nil, err
	}

	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		slog.Error("Failed to get team", "team_id", teamID, "error", err)
		return nil, err
	}
	if len(team.Members) == 0 {
		return nil, fmt.Errorf("%w: team %s", domain.ErrMissingRoster, teamID)
	}

	pto, err := s.repo.ListTeamPTO(ctx, teamID, rng)
	if err != nil {
		slog.Error("Failed to list PTO", "team_id", teamID, "error", err)
		return nil, err
	}

	locations := lo.Uniq(append(
		lo.Map(team.Members, func(m domain.Member, _ int) domain.Location { return m.Location }),
		domain.LocationGlobal,
	))
	holidays, err := s.repo.ListHolidays(ctx, locations, rng)
	if err != nil {
		slog.Error("Failed to list holidays", "team_id", teamID, "error", err)
		return nil, err
	}

	return &teamInputs{
		team:     team,
		pto:      pto,
		holidays: engine.ExpandRecurring(holidays, rng),
	}, nil
}

type fetchFunc func(ctx context.Context, m domain.Member) ([]domain.Issue, error)

// fetchIssues опрашивает трекер по участникам с ограничением параллельности.
// Ошибка по участнику логируется, его список задач считается пустым.
func (s *InsightsService) fetchIssues(ctx context.Context, members []domain.Member, fetch fetchFunc) ([]domain.Issue, error) {
	perMember := make([][]domain.Issue, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)

	for i, m := range members {
		g.Go(func() error {
			issues, err := fetch(gctx, m)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Warn("Failed to fetch issues", "user_id", m.UserID, "error", err)
				return nil
			}
			perMember[i] = issues
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch issues: %w", err)
	}

	return lo.Flatten(perMember), nil
}

// noIssues используется, когда трекер не настроен.
type noIssues struct{}

func (noIssues) WorkedIssues(context.Context, domain.Member, domain.DateRange) ([]domain.Issue, error) {
	return nil, nil
}

func (noIssues) OpenIssues(context.Context, domain.Member) ([]domain.Issue, error) {
	return nil, nil
}
