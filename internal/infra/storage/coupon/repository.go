package coupon

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

// Repository репозиторий купонов
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория купонов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByCode получает купон по коду
func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"code",
		"discount",
		"deduction",
		"usage_limit",
		"service_ids",
		"event_ids",
		"notification_interval",
		"notification_recurring",
		"status",
	).
		From("coupons").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByCode - build select query: %v", ErrBuildQuery, err)
	}

	var coupon domain.Coupon
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Discount,
		&coupon.Deduction,
		&coupon.Limit,
		pq.Array(&coupon.ServiceIDs),
		pq.Array(&coupon.EventIDs),
		&coupon.NotificationInterval,
		&coupon.NotificationRecurring,
		&coupon.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByCode - scan coupon: %v", ErrScanRow, err)
	}

	return &coupon, nil
}

// CountUsedByCustomer считает активные бронирования клиента с этим купоном.
// Отмененные и отклоненные бронирования лимит не расходуют
func (r *Repository) CountUsedByCustomer(ctx context.Context, couponID, customerID int64) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("customer_bookings").
		Where(squirrel.Eq{
			"coupon_id":   couponID,
			"customer_id": customerID,
			"status":      []domain.BookingStatus{domain.StatusPending, domain.StatusApproved},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: CountUsedByCustomer - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountUsedByCustomer - scan count: %v", ErrScanRow, err)
	}

	return count, nil
}
