package book_reservation

import (
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	paymentModels "github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
)

// BookedExtra выбранная опция в составе бронирования
type BookedExtra struct {
	ExtraID  int64 `json:"extraId"`
	Quantity int   `json:"quantity"`
}

// CustomerInfo данные клиента из формы бронирования
type CustomerInfo struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`

	// AccountUserID привязка к учетной записи платформы, если клиент авторизован
	AccountUserID *int64 `json:"accountUserId,omitempty"`
}

// Request модель запроса на бронирование
type Request struct {
	// Type тип бронируемой сущности: appointment или event
	Type string `json:"type"`

	// ServiceID / ProviderID / BookingStart для записей
	ServiceID    int64     `json:"serviceId,omitempty"`
	ProviderID   int64     `json:"providerId,omitempty"`
	LocationID   *int64    `json:"locationId,omitempty"`
	BookingStart time.Time `json:"bookingStart,omitempty"`

	// EventID для событий
	EventID int64 `json:"eventId,omitempty"`

	Persons int           `json:"persons"`
	Extras  []BookedExtra `json:"extras,omitempty"`

	Customer CustomerInfo `json:"customer"`

	CustomFields map[string]domain.CustomFieldValue `json:"customFields,omitempty"`

	// UTCOffset смещение клиента в минутах для отображения времени
	UTCOffset *int `json:"utcOffset,omitempty"`

	CouponCode string `json:"couponCode,omitempty"`

	Payment paymentModels.PaymentData `json:"payment"`

	// Preview рассчитать цену без записи: ничего не сохраняется,
	// платеж не выполняется
	Preview bool `json:"preview,omitempty"`

	// IsBackend бронирование из панели администратора: без минимального
	// интервала до начала
	IsBackend bool `json:"-"`
}

// Response модель ответа на бронирование
type Response struct {
	Type string `json:"type"`

	AppointmentID int64 `json:"appointmentId,omitempty"`
	EventID       int64 `json:"eventId,omitempty"`
	BookingID     int64 `json:"bookingId"`

	Status string  `json:"status"`
	Price  float64 `json:"price"`

	// Token capability-токен для анонимного управления бронированием
	Token string `json:"token"`

	// JoinedExisting бронирование присоединено к существующей групповой записи
	JoinedExisting bool `json:"joinedExisting,omitempty"`

	IsNewCustomer bool `json:"isNewCustomer,omitempty"`

	// PaymentRequiresAction платеж ждет подтверждения клиента (3DS)
	PaymentRequiresAction bool `json:"paymentRequiresAction,omitempty"`

	// PaymentActionToken client secret для завершения оплаты
	PaymentActionToken string `json:"paymentActionToken,omitempty"`
}
