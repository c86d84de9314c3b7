package provider

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/psqlbuilder"
)

// Repository репозиторий сотрудников, их расписаний и нерабочих дней
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория сотрудников
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByServiceID получает сотрудников, назначенных на услугу, вместе с
// расписаниями и нерабочими днями. providerID != 0 сужает выборку до одного
// сотрудника (запрос слотов для конкретного сотрудника)
func (r *Repository) GetByServiceID(ctx context.Context, serviceID int64, providerID int64) ([]*domain.Provider, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(
		"p.id",
		"p.first_name",
		"p.last_name",
		"p.email",
		"p.location_id",
		"p.google_calendar_id",
	).
		From("providers p").
		Join("provider_services ps ON ps.provider_id = p.id").
		Where(squirrel.Eq{"ps.service_id": serviceID}).
		OrderBy("p.id")

	if providerID != 0 {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"p.id": providerID})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByServiceID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByServiceID - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	byID := make(map[int64]*domain.Provider)
	var providers []*domain.Provider
	for rows.Next() {
		var p domain.Provider
		err := rows.Scan(
			&p.ID,
			&p.FirstName,
			&p.LastName,
			&p.Email,
			&p.LocationID,
			&p.GoogleCalendarID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: GetByServiceID - scan provider: %v", ErrScanRow, err)
		}
		byID[p.ID] = &p
		providers = append(providers, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetByServiceID - iterate rows: %v", ErrExecQuery, err)
	}
	if len(providers) == 0 {
		return nil, nil
	}

	if err := r.attachServices(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.attachWeekDays(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.attachDaysOff(ctx, byID); err != nil {
		return nil, err
	}

	return providers, nil
}

// GetGlobalDaysOff получает общие нерабочие дни компании (provider_id IS NULL)
func (r *Repository) GetGlobalDaysOff(ctx context.Context) ([]domain.DayOff, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "start_date", "end_date", "repeat_yearly").
		From("days_off").
		Where("provider_id IS NULL").
		OrderBy("start_date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetGlobalDaysOff - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetGlobalDaysOff - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	var daysOff []domain.DayOff
	for rows.Next() {
		var d domain.DayOff
		if err := rows.Scan(&d.ID, &d.Name, &d.StartDate, &d.EndDate, &d.Repeat); err != nil {
			return nil, fmt.Errorf("%w: GetGlobalDaysOff - scan day off: %v", ErrScanRow, err)
		}
		daysOff = append(daysOff, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetGlobalDaysOff - iterate rows: %v", ErrExecQuery, err)
	}

	return daysOff, nil
}

func (r *Repository) attachServices(ctx context.Context, providers map[int64]*domain.Provider) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("provider_id", "service_id").
		From("provider_services").
		Where(squirrel.Eq{"provider_id": providerIDs(providers)}).
		OrderBy("service_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: attachServices - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: attachServices - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var providerID, serviceID int64
		if err := rows.Scan(&providerID, &serviceID); err != nil {
			return fmt.Errorf("%w: attachServices - scan row: %v", ErrScanRow, err)
		}
		if p, ok := providers[providerID]; ok {
			p.ServiceIDs = append(p.ServiceIDs, serviceID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachServices - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) attachWeekDays(ctx context.Context, providers map[int64]*domain.Provider) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "provider_id", "day_index", "start_time", "end_time").
		From("provider_week_days").
		Where(squirrel.Eq{"provider_id": providerIDs(providers)}).
		OrderBy("provider_id", "day_index").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: attachWeekDays - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: attachWeekDays - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	// week_day_id -> позиция в расписании сотрудника
	owners := make(map[int64]*domain.Provider)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			weekDay    domain.WeekDaySchedule
			providerID int64
		)
		if err := rows.Scan(&weekDay.ID, &providerID, &weekDay.DayIndex, &weekDay.Start, &weekDay.End); err != nil {
			return fmt.Errorf("%w: attachWeekDays - scan week day: %v", ErrScanRow, err)
		}
		p, ok := providers[providerID]
		if !ok {
			continue
		}
		p.WeekDays = append(p.WeekDays, weekDay)
		owners[weekDay.ID] = p
		index[weekDay.ID] = len(p.WeekDays) - 1
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachWeekDays - iterate rows: %v", ErrExecQuery, err)
	}
	if len(owners) == 0 {
		return nil
	}

	if err := r.attachBreaks(ctx, owners, index); err != nil {
		return err
	}
	return r.attachPeriods(ctx, owners, index)
}

func (r *Repository) attachBreaks(ctx context.Context, owners map[int64]*domain.Provider, index map[int64]int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("week_day_id", "start_time", "end_time").
		From("week_day_breaks").
		Where(squirrel.Eq{"week_day_id": weekDayIDs(owners)}).
		OrderBy("start_time").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: attachBreaks - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: attachBreaks - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			weekDayID int64
			tr        domain.TimeRange
		)
		if err := rows.Scan(&weekDayID, &tr.Start, &tr.End); err != nil {
			return fmt.Errorf("%w: attachBreaks - scan break: %v", ErrScanRow, err)
		}
		if p, ok := owners[weekDayID]; ok {
			weekDay := &p.WeekDays[index[weekDayID]]
			weekDay.Breaks = append(weekDay.Breaks, tr)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachBreaks - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) attachPeriods(ctx context.Context, owners map[int64]*domain.Provider, index map[int64]int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("week_day_id", "start_time", "end_time", "service_ids").
		From("week_day_periods").
		Where(squirrel.Eq{"week_day_id": weekDayIDs(owners)}).
		OrderBy("start_time").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: attachPeriods - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: attachPeriods - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			weekDayID int64
			period    domain.SchedulePeriod
		)
		if err := rows.Scan(&weekDayID, &period.Start, &period.End, pq.Array(&period.ServiceIDs)); err != nil {
			return fmt.Errorf("%w: attachPeriods - scan period: %v", ErrScanRow, err)
		}
		if p, ok := owners[weekDayID]; ok {
			weekDay := &p.WeekDays[index[weekDayID]]
			weekDay.Periods = append(weekDay.Periods, period)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachPeriods - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) attachDaysOff(ctx context.Context, providers map[int64]*domain.Provider) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "provider_id", "name", "start_date", "end_date", "repeat_yearly").
		From("days_off").
		Where(squirrel.Eq{"provider_id": providerIDs(providers)}).
		OrderBy("start_date").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: attachDaysOff - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: attachDaysOff - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d          domain.DayOff
			providerID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &providerID, &d.Name, &d.StartDate, &d.EndDate, &d.Repeat); err != nil {
			return fmt.Errorf("%w: attachDaysOff - scan day off: %v", ErrScanRow, err)
		}
		if p, ok := providers[providerID.Int64]; ok {
			p.DaysOff = append(p.DaysOff, d)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachDaysOff - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}

func providerIDs(providers map[int64]*domain.Provider) []int64 {
	ids := make([]int64, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	return ids
}

func weekDayIDs(owners map[int64]*domain.Provider) []int64 {
	ids := make([]int64, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	return ids
}
