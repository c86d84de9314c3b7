package appointment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/psqlbuilder"
)

// Repository репозиторий для работы с записями и клиентскими бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

var appointmentColumns = []string{
	"id",
	"service_id",
	"provider_id",
	"location_id",
	"booking_start",
	"booking_end",
	"status",
	"internal_notes",
	"google_calendar_event_id",
	"created_at",
	"updated_at",
}

var bookingColumns = []string{
	"id",
	"appointment_id",
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
}

// Create создает запись вместе с вложенными клиентскими бронированиями.
// Вызывается внутри сериализуемой транзакции конвейера бронирования:
// проверка слота и вставка должны быть атомарны
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(
			"service_id",
			"provider_id",
			"location_id",
			"booking_start",
			"booking_end",
			"status",
			"internal_notes",
			"google_calendar_event_id",
		).
		Values(
			appt.ServiceID,
			appt.ProviderID,
			appt.LocationID,
			appt.BookingStart,
			appt.BookingEnd,
			appt.Status,
			appt.InternalNotes,
			appt.GoogleCalendarEventID,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&appt.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}
	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	for _, booking := range appt.SortedBookings() {
		booking.AppointmentID = &appt.ID
		if _, err := r.CreateBooking(ctx, booking); err != nil {
			return nil, err
		}
	}
	// Переиндексируем по выданным базой идентификаторам
	bookings := appt.SortedBookings()
	appt.Bookings = make(map[int64]*domain.CustomerBooking, len(bookings))
	for _, booking := range bookings {
		appt.Bookings[booking.ID] = booking
	}

	return appt, nil
}

// CreateBooking добавляет клиентское бронирование (в новую или существующую запись)
func (r *Repository) CreateBooking(ctx context.Context, booking *domain.CustomerBooking) (*domain.CustomerBooking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	extras, customFields, err := encodePayload(booking)
	if err != nil {
		return nil, err
	}

	query, args, err := psqlbuilder.Insert("customer_bookings").
		Columns(
			"appointment_id",
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
		Values(
			booking.AppointmentID,
			booking.EventID,
			booking.CustomerID,
			booking.Status,
			booking.Price,
			booking.AggregatedPrice,
			booking.Persons,
			booking.CouponID,
			extras,
			customFields,
			booking.UTCOffset,
			booking.Token,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CreateBooking - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&booking.ID); err != nil {
		return nil, fmt.Errorf("%w: CreateBooking - execute insert: %v", ErrExecQuery, err)
	}

	return booking, nil
}

// GetByID получает запись по ID вместе с клиентскими бронированиями.
// Внутри транзакции строка записи блокируется FOR UPDATE
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	appt, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	if err := r.attachBookings(ctx, map[int64]*domain.Appointment{appt.ID: appt}); err != nil {
		return nil, err
	}

	return appt, nil
}

// FindAtTime ищет активную запись сотрудника на услугу с точным временем начала.
// Используется конвейером бронирования для присоединения к групповой записи.
// Внутри транзакции строка блокируется FOR UPDATE
func (r *Repository) FindAtTime(ctx context.Context, providerID, serviceID int64, start time.Time) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{
			"provider_id":   providerID,
			"service_id":    serviceID,
			"booking_start": start,
		}).
		Where(squirrel.Eq{"status": []domain.BookingStatus{domain.StatusPending, domain.StatusApproved}})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindAtTime - build select query: %v", ErrBuildQuery, err)
	}

	appt, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: FindAtTime - scan appointment: %v", ErrScanRow, err)
	}

	if err := r.attachBookings(ctx, map[int64]*domain.Appointment{appt.ID: appt}); err != nil {
		return nil, err
	}

	return appt, nil
}

// GetFutureAppointments возвращает записи сотрудников в окне дат вместе с
// бронированиями. excludeID исключает переносимую запись, 0 = без исключений
func (r *Repository) GetFutureAppointments(
	ctx context.Context,
	providerIDs []int64,
	excludeID int64,
	statuses []domain.BookingStatus,
	from, to time.Time,
) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"provider_id": providerIDs}).
		Where(squirrel.Eq{"status": statuses}).
		Where(squirrel.Lt{"booking_start": to}).
		Where(squirrel.Gt{"booking_end": from}).
		OrderBy("booking_start")

	if excludeID != 0 {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"id": excludeID})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetFutureAppointments - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetFutureAppointments - execute select: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	byID := make(map[int64]*domain.Appointment)
	var appts []*domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetFutureAppointments - scan appointment: %v", ErrScanRow, err)
		}
		byID[appt.ID] = appt
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetFutureAppointments - iterate rows: %v", ErrExecQuery, err)
	}

	if err := r.attachBookings(ctx, byID); err != nil {
		return nil, err
	}

	return appts, nil
}

// Update обновляет запись (время, статус, заметки, внешний календарь)
func (r *Repository) Update(ctx context.Context, appt *domain.Appointment) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointments").
		Set("service_id", appt.ServiceID).
		Set("provider_id", appt.ProviderID).
		Set("location_id", appt.LocationID).
		Set("booking_start", appt.BookingStart).
		Set("booking_end", appt.BookingEnd).
		Set("status", appt.Status).
		Set("internal_notes", appt.InternalNotes).
		Set("google_calendar_event_id", appt.GoogleCalendarEventID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": appt.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Update - execute update: %v", ErrExecQuery, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

// UpdateBookingStatus меняет статус одного клиентского бронирования
func (r *Repository) UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("customer_bookings").
		Set("status", status).
		Where(squirrel.Eq{"id": bookingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateBookingStatus - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateBookingStatus - execute update: %v", ErrExecQuery, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// UpdateBookingStatuses применяет новые статусы всех бронирований записи
func (r *Repository) UpdateBookingStatuses(ctx context.Context, appt *domain.Appointment) error {
	for _, booking := range appt.SortedBookings() {
		if err := r.UpdateBookingStatus(ctx, booking.ID, booking.Status); err != nil {
			return err
		}
	}
	return nil
}

// GetBookingByID получает одно клиентское бронирование
func (r *Repository) GetBookingByID(ctx context.Context, id int64) (*domain.CustomerBooking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("customer_bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBookingByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetBookingByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// attachBookings подгружает клиентские бронирования для набора записей
func (r *Repository) attachBookings(ctx context.Context, appts map[int64]*domain.Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	ids := make([]int64, 0, len(appts))
	for id := range appts {
		ids = append(ids, id)
	}

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("customer_bookings").
		Where(squirrel.Eq{"appointment_id": ids}).
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
		booking, err := scanBooking(rows)
		if err != nil {
			return fmt.Errorf("%w: attachBookings - scan booking: %v", ErrScanRow, err)
		}
		if booking.AppointmentID != nil {
			if appt, ok := appts[*booking.AppointmentID]; ok {
				appt.AddBooking(booking)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: attachBookings - iterate rows: %v", ErrExecQuery, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var (
		appt      domain.Appointment
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&appt.ID,
		&appt.ServiceID,
		&appt.ProviderID,
		&appt.LocationID,
		&appt.BookingStart,
		&appt.BookingEnd,
		&appt.Status,
		&appt.InternalNotes,
		&appt.GoogleCalendarEventID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time
	return &appt, nil
}

func scanBooking(row rowScanner) (*domain.CustomerBooking, error) {
	var (
		booking      domain.CustomerBooking
		extras       []byte
		customFields []byte
	)
	err := row.Scan(
		&booking.ID,
		&booking.AppointmentID,
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
		return nil, err
	}

	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &booking.Extras); err != nil {
			return nil, err
		}
	}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &booking.CustomFields); err != nil {
			return nil, err
		}
	}

	return &booking, nil
}

// encodePayload сериализует JSONB-колонки бронирования
func encodePayload(booking *domain.CustomerBooking) ([]byte, []byte, error) {
	extras, err := json.Marshal(booking.Extras)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode extras: %v", ErrEncodePayload, err)
	}
	customFields, err := json.Marshal(booking.CustomFields)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode custom fields: %v", ErrEncodePayload, err)
	}
	return extras, customFields, nil
}
