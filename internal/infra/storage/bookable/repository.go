package bookable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/psqlbuilder"
)

// Repository репозиторий услуг и их дополнительных опций
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория услуг
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByIDWithExtras получает услугу вместе с дополнительными опциями
func (r *Repository) GetByIDWithExtras(ctx context.Context, id int64) (*domain.Service, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"category_id",
		"name",
		"duration",
		"price",
		"aggregated_price",
		"min_capacity",
		"max_capacity",
	).
		From("services").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByIDWithExtras - build select query: %v", ErrBuildQuery, err)
	}

	var service domain.Service
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&service.ID,
		&service.CategoryID,
		&service.Name,
		&service.Duration,
		&service.Price,
		&service.AggregatedPrice,
		&service.MinCapacity,
		&service.MaxCapacity,
	)
	if err == sql.ErrNoRows {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByIDWithExtras - scan service: %v", ErrScanRow, err)
	}

	extras, err := r.getExtras(ctx, id)
	if err != nil {
		return nil, err
	}
	service.Extras = extras

	return &service, nil
}

func (r *Repository) getExtras(ctx context.Context, serviceID int64) ([]domain.Extra, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"service_id",
		"name",
		"duration",
		"price",
		"max_quantity",
		"aggregated_price",
	).
		From("service_extras").
		Where(squirrel.Eq{"service_id": serviceID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: getExtras - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getExtras - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	var extras []domain.Extra
	for rows.Next() {
		var extra domain.Extra
		err := rows.Scan(
			&extra.ID,
			&extra.ServiceID,
			&extra.Name,
			&extra.Duration,
			&extra.Price,
			&extra.MaxQuantity,
			&extra.AggregatedPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: getExtras - scan extra: %v", ErrScanRow, err)
		}
		extras = append(extras, extra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: getExtras - iterate rows: %v", ErrExecQuery, err)
	}

	return extras, nil
}
