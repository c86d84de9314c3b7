package payments

import "github.com/kirillmaftuljak/WPKHK/internal/domain"

// Amount вычисляет стоимость бронирования.
//
// База умножается на число человек только при агрегированной цене; каждая
// опция считается по собственному признаку агрегации, а при его отсутствии
// наследует признак услуги. Скидка купона применяется к полной сумме,
// затем вычитается фиксированная часть. Отрицательный итог не обрезается:
// отказ от списания отрицательной суммы — ответственность шлюза
func Amount(reservation *domain.Reservation) float64 {
	booking := reservation.Booking

	multiplier := 1
	if reservation.AggregatedPrice() {
		multiplier = booking.Persons
	}
	amount := reservation.Price() * float64(multiplier)

	for _, extra := range booking.Extras {
		extraMultiplier := 1
		if extraAggregated(reservation, extra) {
			extraMultiplier = booking.Persons
		}
		amount += extra.Price * float64(extra.Quantity) * float64(extraMultiplier)
	}

	if booking.Coupon != nil {
		amount -= amount/100*booking.Coupon.Discount + booking.Coupon.Deduction
	}

	return amount
}

func extraAggregated(reservation *domain.Reservation, extra domain.CustomerBookingExtra) bool {
	if extra.AggregatedPrice != nil {
		return *extra.AggregatedPrice
	}
	return reservation.AggregatedPrice()
}
