package googlecalendar

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("googlecalendar client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе Calendar API
	ErrInvalidResponse = errors.New("googlecalendar client: invalid response")

	// ErrEventNotFound возвращается, когда событие календаря не существует
	ErrEventNotFound = errors.New("googlecalendar client: event not found")
)
