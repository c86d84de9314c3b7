package appointments

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotNotAvailable возвращается, когда новое время записи конфликтует
	// с другими записями сотрудника
	ErrSlotNotAvailable = errors.New("slot not available")

	// ErrInvalidStatus возвращается при недопустимом переходе статуса
	ErrInvalidStatus = errors.New("invalid status transition")

	// ErrAccessDenied возвращается при неверном capability-токене
	ErrAccessDenied = errors.New("access denied")

	// ErrCancelTooLate возвращается, когда до начала записи осталось меньше
	// минимального интервала отмены
	ErrCancelTooLate = errors.New("cancellation period has expired")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("appointments service: internal error")
)
