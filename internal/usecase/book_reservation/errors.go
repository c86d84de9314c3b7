package book_reservation

import "errors"

var (
	// ErrServiceNotFound возвращается, когда услуга не найдена
	ErrServiceNotFound = errors.New("service not found")

	// ErrEventNotFound возвращается, когда событие не найдено
	ErrEventNotFound = errors.New("event not found")

	// ErrBookingUnavailable возвращается, когда слот занят или вместимость
	// исчерпана на момент авторитетной проверки
	ErrBookingUnavailable = errors.New("time slot unavailable")

	// ErrCustomerAlreadyBooked возвращается, когда у клиента уже есть активное
	// бронирование в этой записи или событии
	ErrCustomerAlreadyBooked = errors.New("customer already booked")

	// ErrCouponUnknown возвращается, когда код купона не существует
	ErrCouponUnknown = errors.New("coupon unknown")

	// ErrCouponInvalid возвращается, когда купон неприменим
	ErrCouponInvalid = errors.New("coupon invalid")

	// ErrCustomerEmail возвращается при отсутствующем или некорректном email
	ErrCustomerEmail = errors.New("customer email missing or invalid")

	// ErrPaymentFailed возвращается, когда платеж отклонен; бронирование
	// при этом откатывается целиком
	ErrPaymentFailed = errors.New("payment failed")

	// ErrBookingTooSoon возвращается, когда до начала слота меньше
	// минимального интервала бронирования
	ErrBookingTooSoon = errors.New("booking starts too soon")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("usecase: internal error")
)
