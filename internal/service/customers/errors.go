package customers

import "errors"

var (
	// ErrEmailRequired возвращается, когда у нового клиента не указан email
	ErrEmailRequired = errors.New("customer email required")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("customers service: internal error")
)
