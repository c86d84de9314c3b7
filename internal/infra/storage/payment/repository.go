package payment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/psqlbuilder"
)

// Repository репозиторий платежей
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория платежей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет платеж. Вызывается внутри транзакции бронирования:
// запись и платеж фиксируются атомарно
func (r *Repository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("payments").
		Columns(
			"customer_booking_id",
			"amount",
			"status",
			"gateway",
			"gateway_title",
			"idempotency_key",
			"date_time",
		).
		Values(
			p.CustomerBookingID,
			p.Amount,
			p.Status,
			p.Gateway,
			p.GatewayTitle,
			p.IdempotencyKey,
			p.DateTime,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&p.ID, &createdAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}
	p.CreatedAt = createdAt.Time

	return p, nil
}

// GetByBookingID получает платежи одного бронирования
func (r *Repository) GetByBookingID(ctx context.Context, bookingID int64) ([]*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"customer_booking_id",
		"amount",
		"status",
		"gateway",
		"gateway_title",
		"idempotency_key",
		"date_time",
		"created_at",
	).
		From("payments").
		Where(squirrel.Eq{"customer_booking_id": bookingID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBookingID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBookingID - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var (
			p         domain.Payment
			createdAt sql.NullTime
		)
		err := rows.Scan(
			&p.ID,
			&p.CustomerBookingID,
			&p.Amount,
			&p.Status,
			&p.Gateway,
			&p.GatewayTitle,
			&p.IdempotencyKey,
			&p.DateTime,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: GetByBookingID - scan payment: %v", ErrScanRow, err)
		}
		p.CreatedAt = createdAt.Time
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetByBookingID - iterate rows: %v", ErrExecQuery, err)
	}

	return payments, nil
}
