// Package jobs запускает периодические задачи сервиса.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

// snapshotLockKey ключ advisory lock еженедельных снимков.
const snapshotLockKey int64 = 7301

type snapshotService interface {
	GenerateWeeklySnapshots(ctx context.Context, rng domain.DateRange) (int, error)
}

type locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

type Cron struct {
	svc     snapshotService
	locks   locker
	c       *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

// NewCron регистрирует задачу снимков по расписанию spec (5 полей, UTC).
func NewCron(spec string, svc snapshotService, locks locker) (*Cron, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
	)
	cr := &Cron{
		svc:     svc,
		locks:   locks,
		c:       c,
		timeout: 10 * time.Minute,
		now:     time.Now,
	}
	if _, err := c.AddFunc(spec, cr.weekly); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop останавливает планировщик и ждёт текущий запуск.
func (cr *Cron) Stop() context.Context { return cr.c.Stop() }

func (cr *Cron) weekly() {
	ctx, cancel := context.WithTimeout(context.Background(), cr.timeout)
	defer cancel()

	if err := cr.RunSnapshots(ctx); err != nil {
		slog.Error("Weekly snapshot job failed", "error", err)
	}
}

// RunSnapshots считает снимки за прошлую неделю, если другой экземпляр
// не делает это прямо сейчас.
func (cr *Cron) RunSnapshots(ctx context.Context) error {
	ok, err := cr.locks.TryAdvisoryLock(ctx, snapshotLockKey)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if !ok {
		slog.Info("Snapshot job already running elsewhere")
		return nil
	}
	defer func() {
		if err := cr.locks.AdvisoryUnlock(context.Background(), snapshotLockKey); err != nil {
			slog.Error("Failed to release snapshot lock", "error", err)
		}
	}()

	rng := PreviousWeek(cr.now())
	slog.Info("Generating weekly snapshots",
		"period_start", rng.Start.Format(domain.DateLayout),
		"period_end", rng.End.Format(domain.DateLayout),
	)

	saved, err := cr.svc.GenerateWeeklySnapshots(ctx, rng)
	if err != nil {
		return fmt.Errorf("generated %d snapshots: %w", saved, err)
	}
	return nil
}

// PreviousWeek полная неделя понедельник-воскресенье перед неделей now.
func PreviousWeek(now time.Time) domain.DateRange {
	day := domain.TruncateDay(now)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -sinceMonday-7)
	return domain.DateRange{Start: monday, End: monday.AddDate(0, 0, 6)}
}
