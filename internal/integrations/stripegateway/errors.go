package stripegateway

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("stripegateway client: internal error")

	// ErrNegativeAmount возвращается при попытке списать отрицательную сумму
	ErrNegativeAmount = errors.New("stripegateway client: amount must not be negative")

	// ErrChargeDeclined возвращается, когда шлюз отклонил списание
	ErrChargeDeclined = errors.New("stripegateway client: charge declined")
)
