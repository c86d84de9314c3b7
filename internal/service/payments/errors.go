package payments

import "errors"

var (
	// ErrUnknownGateway возвращается при неизвестном способе оплаты
	ErrUnknownGateway = errors.New("unknown payment gateway")

	// ErrPaymentFailed возвращается, когда шлюз отклонил списание
	ErrPaymentFailed = errors.New("payment failed")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("payments service: internal error")
)
