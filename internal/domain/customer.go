package domain

import "time"

// Customer клиент, совершающий бронирования
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     *string

	// AccountUserID привязка к учетной записи пользователя платформы (nullable)
	AccountUserID *int64

	CreatedAt time.Time
}

// FullName returns "FirstName LastName"
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
