package domain

// Coupon скидочный купон, привязанный к услугам и/или событиям
// Discount (процент) и Deduction (фиксированная сумма) взаимоисключающие:
// заполняется только одно из полей
type Coupon struct {
	ID   int64
	Code string

	Discount  float64 // процент, 0-100
	Deduction float64 // фиксированная сумма

	// Limit максимальное число использований купона одним клиентом
	Limit int

	ServiceIDs []int64
	EventIDs   []int64

	// NotificationInterval / NotificationRecurring управляют рассылкой
	// "вы заработали купон" (внешняя подсистема уведомлений)
	NotificationInterval  int
	NotificationRecurring bool

	Status string // "visible" | "hidden"
}

// AppliesTo reports whether the coupon is bound to the given entity
func (c *Coupon) AppliesTo(entityType string, entityID int64) bool {
	var ids []int64
	switch entityType {
	case EntityAppointment:
		ids = c.ServiceIDs
	case EntityEvent:
		ids = c.EventIDs
	default:
		return false
	}
	for _, id := range ids {
		if id == entityID {
			return true
		}
	}
	return false
}
