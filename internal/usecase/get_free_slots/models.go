package get_free_slots

import (
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
)

// SelectedExtra выбранная опция в составе запроса слотов: опции удлиняют
// требуемую длительность
type SelectedExtra struct {
	ExtraID  int64
	Quantity int
}

// Request модель запроса свободных слотов
type Request struct {
	ServiceID int64

	// ProviderID 0 = все сотрудники услуги
	ProviderID int64

	// LocationID nil = любая локация
	LocationID *int64

	PersonsCount int

	Extras []SelectedExtra

	// DateFrom / DateTo границы запрошенного окна (даты)
	DateFrom time.Time
	DateTo   time.Time

	// ExcludeAppointmentID исключает переносимую запись из занятости
	ExcludeAppointmentID int64

	// IsBackend запрос из панели администратора: расширенный горизонт,
	// без минимального интервала до начала
	IsBackend bool
}

// Response модель ответа со свободными слотами
type Response struct {
	ServiceID int64

	// Slots дата -> время -> сотрудники, доступные в этот слот
	Slots timeslot.SlotMap
}
