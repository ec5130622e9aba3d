package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sqlx.DB

	lockMu sync.Mutex
	locks  map[int64]*sqlx.Conn
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db:    db,
		locks: make(map[int64]*sqlx.Conn),
	}
}

// ========================================
// TeamRepository Methods
// ========================================

func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	var teamID uuid.UUID
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO teams (team_name)
		VALUES ($1)
		RETURNING team_id
	`, team.TeamName).Scan(&teamID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrTeamExists
		}
		return fmt.Errorf("failed to insert team: %w", err)
	}

	for i := range team.Members {
		team.Members[i].TeamID = teamID
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO members (user_id, team_id, name, email, designation, location, tracker_account_id)
			VALUES (:user_id, :team_id, :name, :email, :designation, :location, :tracker_account_id)
			ON CONFLICT (user_id) DO UPDATE SET
				team_id = EXCLUDED.team_id,
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				designation = EXCLUDED.designation,
				location = EXCLUDED.location,
				tracker_account_id = EXCLUDED.tracker_account_id,
				updated_at = NOW()
		`, team.Members[i])
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	team.TeamID = teamID
	slog.Info("Team created in DB", "team_name", team.TeamName, "team_id", teamID)
	return nil
}

func (r *Repository) GetTeamByID(ctx context.Context, teamID uuid.UUID) (*domain.Team, error) {
	var team domain.Team
	err := r.db.GetContext(ctx, &team, `
		SELECT team_id, team_name
		FROM teams
		WHERE team_id = $1
	`, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	members, err := r.GetTeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	team.Members = members

	return &team, nil
}

func (r *Repository) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := r.db.SelectContext(ctx, &teams, `
		SELECT team_id, team_name
		FROM teams
		ORDER BY team_name
	`); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	var members []domain.Member
	if err := r.db.SelectContext(ctx, &members, `
		SELECT user_id, team_id, name, email, designation, location, tracker_account_id
		FROM members
		ORDER BY name
	`); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	byTeam := make(map[uuid.UUID][]domain.Member, len(teams))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m)
	}
	for i := range teams {
		teams[i].Members = byTeam[teams[i].TeamID]
	}

	return teams, nil
}

func (r *Repository) TeamExists(ctx context.Context, teamName string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM teams WHERE team_name = $1)
	`, teamName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team existence: %w", err)
	}
	return exists, nil
}

// ========================================
// MemberRepository Methods
// ========================================

func (r *Repository) GetTeamMembers(ctx context.Context, teamID uuid.UUID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.SelectContext(ctx, &members, `
		SELECT user_id, team_id, name, email, designation, location, tracker_account_id
		FROM members
		WHERE team_id = $1
		ORDER BY name
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	return members, nil
}

func (r *Repository) GetMemberByID(ctx context.Context, userID uuid.UUID) (*domain.Member, error) {
	var member domain.Member
	err := r.db.GetContext(ctx, &member, `
		SELECT user_id, team_id, name, email, designation, location, tracker_account_id
		FROM members
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

// ========================================
// HolidayRepository Methods
// ========================================

func (r *Repository) CreateHoliday(ctx context.Context, holiday *domain.Holiday) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO holidays (name, date, location, hours, recurring)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING holiday_id
	`, holiday.Name, holiday.Date, holiday.Location, holiday.Hours, holiday.Recurring).Scan(&holiday.HolidayID)
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}

	slog.Info("Holiday created", "holiday_id", holiday.HolidayID, "date", holiday.Date.Format(domain.DateLayout))
	return nil
}

// ListHolidays возвращает праздники локаций в диапазоне и все повторяющиеся.
// Повторяющиеся разворачиваются по годам на стороне сервиса.
func (r *Repository) ListHolidays(ctx context.Context, locations []domain.Location, rng domain.DateRange) ([]domain.Holiday, error) {
	locs := make([]string, len(locations))
	for i, l := range locations {
		locs[i] = string(l)
	}

	var holidays []domain.Holiday
	err := r.db.SelectContext(ctx, &holidays, `
		SELECT holiday_id, name, date, location, hours, recurring
		FROM holidays
		WHERE location = ANY($1)
		  AND (recurring OR date BETWEEN $2 AND $3)
		ORDER BY date, name
	`, pq.Array(locs), rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}

func (r *Repository) DeleteHoliday(ctx context.Context, holidayID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE holiday_id = $1`, holidayID)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrHolidayNotFound
	}
	return nil
}

// ========================================
// PTORepository Methods
// ========================================

func (r *Repository) CreatePTO(ctx context.Context, record *domain.PTORecord) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO pto_records (user_id, team_id, start_date, end_date, duration_hours, type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING pto_id
	`, record.UserID, record.TeamID, record.StartDate, record.EndDate,
		record.DurationHours, record.Type, record.Status).Scan(&record.PTOID)
	if err != nil {
		return fmt.Errorf("failed to insert PTO record: %w", err)
	}

	slog.Info("PTO record created", "pto_id", record.PTOID, "user_id", record.UserID, "status", record.Status)
	return nil
}

func (r *Repository) GetPTOByID(ctx context.Context, ptoID uuid.UUID) (*domain.PTORecord, error) {
	var record domain.PTORecord
	err := r.db.GetContext(ctx, &record, `
		SELECT pto_id, user_id, team_id, start_date, end_date, duration_hours, type, status
		FROM pto_records
		WHERE pto_id = $1
	`, ptoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPTONotFound
		}
		return nil, fmt.Errorf("failed to get PTO record: %w", err)
	}
	return &record, nil
}

func (r *Repository) UpdatePTOStatus(ctx context.Context, ptoID uuid.UUID, status domain.PTOStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pto_records
		SET status = $1, updated_at = NOW()
		WHERE pto_id = $2
	`, status, ptoID)
	if err != nil {
		return fmt.Errorf("failed to update PTO status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPTONotFound
	}

	slog.Info("PTO status updated", "pto_id", ptoID, "status", status)
	return nil
}

// ListTeamPTO записи команды любых статусов, пересекающие диапазон.
func (r *Repository) ListTeamPTO(ctx context.Context, teamID uuid.UUID, rng domain.DateRange) ([]domain.PTORecord, error) {
	var records []domain.PTORecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT pto_id, user_id, team_id, start_date, end_date, duration_hours, type, status
		FROM pto_records
		WHERE team_id = $1
		  AND start_date <= $3
		  AND end_date >= $2
		ORDER BY start_date, pto_id
	`, teamID, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list PTO records: %w", err)
	}
	return records, nil
}

// ========================================
// SnapshotRepository Methods
// ========================================

type snapshotRow struct {
	SnapshotID  uuid.UUID `db:"snapshot_id"`
	TeamID      uuid.UUID `db:"team_id"`
	PeriodStart time.Time `db:"period_start"`
	PeriodEnd   time.Time `db:"period_end"`
	Report      []byte    `db:"report"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *domain.InsightSnapshot) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO insight_snapshots (team_id, period_start, period_end, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, period_start, period_end) DO UPDATE SET
			report = EXCLUDED.report,
			created_at = NOW()
		RETURNING snapshot_id, created_at
	`, snapshot.TeamID, snapshot.PeriodStart, snapshot.PeriodEnd, []byte(snapshot.Report)).
		Scan(&snapshot.SnapshotID, &snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	slog.Info("Insight snapshot saved", "team_id", snapshot.TeamID, "snapshot_id", snapshot.SnapshotID)
	return nil
}

func (r *Repository) ListSnapshots(ctx context.Context, teamID uuid.UUID, limit int) ([]domain.InsightSnapshot, error) {
	var rows []snapshotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT snapshot_id, team_id, period_start, period_end, report, created_at
		FROM insight_snapshots
		WHERE team_id = $1
		ORDER BY period_start DESC
		LIMIT $2
	`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snapshots := make([]domain.InsightSnapshot, len(rows))
	for i, row := range rows {
		snapshots[i] = domain.InsightSnapshot{
			SnapshotID:  row.SnapshotID,
			TeamID:      row.TeamID,
			PeriodStart: row.PeriodStart,
			PeriodEnd:   row.PeriodEnd,
			Report:      row.Report,
			CreatedAt:   row.CreatedAt,
		}
	}
	return snapshots, nil
}

// TryAdvisoryLock не даёт нескольким экземплярам запускать одну задачу.
// Блокировка сессионная, поэтому соединение удерживается до AdvisoryUnlock.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	if _, held := r.locks[key]; held {
		return false, nil
	}

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection for advisory lock: %w", err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to take advisory lock: %w", err)
	}
	if !ok {
		_ = conn.Close()
		return false, nil
	}

	r.locks[key] = conn
	return true, nil
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	r.lockMu.Lock()
	conn, held := r.locks[key]
	delete(r.locks, key)
	r.lockMu.Unlock()

	if !held {
		return fmt.Errorf("advisory lock %d is not held", key)
	}
	defer conn.Close()

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&ok); err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	if !ok {
		return errors.New("advisory unlock returned false")
	}
	return nil
}

// ========================================
// Compile-time interface check
// ========================================

var _ RepositoryInterface = (*Repository)(nil)
