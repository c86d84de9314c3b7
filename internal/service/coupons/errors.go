package coupons

import "errors"

var (
	// ErrCouponUnknown возвращается, когда купон с таким кодом не существует
	ErrCouponUnknown = errors.New("coupon unknown")

	// ErrCouponInvalid возвращается, когда купон существует, но неприменим:
	// не привязан к услуге/событию или исчерпан лимит использований
	ErrCouponInvalid = errors.New("coupon invalid")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("coupons service: internal error")
)
