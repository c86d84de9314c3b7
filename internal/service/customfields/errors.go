package customfields

import "errors"

var (
	// ErrInvalidFieldValue возвращается при некорректном значении поля
	ErrInvalidFieldValue = errors.New("invalid custom field value")
)
