package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/psqlbuilder"
)

// Repository репозиторий событий
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория событий
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает событие с периодами, сотрудниками, тегами и бронированиями.
// Внутри транзакции строка события блокируется FOR UPDATE: проверка вместимости
// и вставка бронирования должны видеть согласованное состояние
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(
		"id",
		"name",
		"provider_ids",
		"tags",
		"price",
		"aggregated_price",
		"max_capacity",
		"status",
		"created_at",
		"updated_at",
	).
		From("events").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var (
		event     domain.Event
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&event.ID,
		&event.Name,
		pq.Array(&event.ProviderIDs),
		pq.Array(&event.Tags),
		&event.Price,
		&event.AggregatedPrice,
		&event.MaxCapacity,
		&event.Status,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan event: %v", ErrScanRow, err)
	}
	event.CreatedAt = createdAt.Time
	event.UpdatedAt = updatedAt.Time

	if err := r.attachPeriods(ctx, &event); err != nil {
		return nil, err
	}
	if err := r.attachBookings(ctx, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *Repository) attachPeriods(ctx context.Context, event *domain.Event) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "period_start", "period_end").
		From("event_periods").
		Where(squirrel.Eq{"event_id": event.ID}).
		OrderBy("period_start").
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
		var period domain.EventPeriod
		if err := rows.Scan(&period.ID, &period.Start, &period.End); err != nil {
			return fmt.Errorf("%w: attachPeriods - scan period: %v", ErrScanRow, err)
		}
		event.Periods = append(event.Periods, period)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachPeriods - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) attachBookings(ctx context.Context, event *domain.Event) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"event_id",
		"customer_id",
		"status",
		"price",
		"aggregated_price",
		"persons",
		"coupon_id",
		"extras",
		"custom_fields",
		"utc_offset",
		"token",
	).
		From("customer_bookings").
		Where(squirrel.Eq{"event_id": event.ID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: attachBookings - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: attachBookings - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			booking      domain.CustomerBooking
			extras       []byte
			customFields []byte
		)
		err := rows.Scan(
			&booking.ID,
			&booking.EventID,
			&booking.CustomerID,
			&booking.Status,
			&booking.Price,
			&booking.AggregatedPrice,
			&booking.Persons,
			&booking.CouponID,
			&extras,
			&customFields,
			&booking.UTCOffset,
			&booking.Token,
		)
		if err != nil {
			return fmt.Errorf("%w: attachBookings - scan booking: %v", ErrScanRow, err)
		}
		if len(extras) > 0 {
			if err := json.Unmarshal(extras, &booking.Extras); err != nil {
				return fmt.Errorf("%w: attachBookings - decode extras: %v", ErrScanRow, err)
			}
		}
		if len(customFields) > 0 {
			if err := json.Unmarshal(customFields, &booking.CustomFields); err != nil {
				return fmt.Errorf("%w: attachBookings - decode custom fields: %v", ErrScanRow, err)
			}
		}
		event.AddBooking(&booking)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachBookings - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}
