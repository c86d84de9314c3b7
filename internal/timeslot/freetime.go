package timeslot

import (
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// Options параметры расчета свободного времени
type Options struct {
	// LocationID желаемая локация; nil = любая
	LocationID *int64

	// ExcludeAppointmentID запись, исключаемая из занятости (перенос), 0 = нет
	ExcludeAppointmentID int64

	// PersonsCount запрошенное число человек в бронировании
	PersonsCount int

	// AllowBookingIfPending разрешает бронировать поверх pending-записей
	AllowBookingIfPending bool

	// AllowBookingIfNotMinCapacity предлагать слоты, даже если бронирование
	// останется ниже минимальной вместимости (добор контролирует внешний cutoff-джоб)
	AllowBookingIfNotMinCapacity bool
}

// JoinableSlot существующая запись на ту же услугу, к которой еще можно
// присоединиться (групповое бронирование). Не является дырой в свободном
// времени: учитывается отдельно генератором слотов
type JoinableSlot struct {
	AppointmentID int64
	Interval      Interval

	// Persons уже забронированное число человек
	Persons int
}

// ProviderFreeTime результат расчета для одного сотрудника
type ProviderFreeTime struct {
	// Free отсортированные, непересекающиеся, минимальные свободные интервалы
	Free []Interval

	Joinable []JoinableSlot
}

// FreeTime вычисляет свободные интервалы каждого сотрудника в заданном окне.
//
// Для каждого сотрудника недельное расписание разворачивается по дням окна
// (с учетом перерывов и под-периодов, ограниченных услугами), затем вычитаются:
// занятость существующими записями, внешние busy-блоки календаря и нерабочие
// дни (глобальные и персональные). Запись на ту же услугу с незаполненной
// вместимостью не блокирует интервал, а попадает в Joinable
func FreeTime(
	service *domain.Service,
	providers []*domain.Provider,
	globalDaysOff []domain.DayOff,
	externalBusy map[int64][]Interval,
	window Interval,
	opts Options,
) map[int64]ProviderFreeTime {
	result := make(map[int64]ProviderFreeTime, len(providers))

	for _, provider := range providers {
		if !provider.Serves(service.ID) {
			continue
		}
		if opts.LocationID != nil && provider.LocationID != nil && *provider.LocationID != *opts.LocationID {
			continue
		}

		working := workingIntervals(service.ID, provider, globalDaysOff, window)
		busy, joinable := splitBusy(service, provider, window, opts)
		busy = append(busy, externalBusy[provider.ID]...)

		free := Subtract(working, busy)

		// Ниже минимальной вместимости новые записи не предлагаются,
		// остается только присоединение к существующим
		if !opts.AllowBookingIfNotMinCapacity && opts.PersonsCount < service.MinCapacity {
			free = nil
		}

		result[provider.ID] = ProviderFreeTime{Free: free, Joinable: joinable}
	}

	return result
}

// workingIntervals разворачивает недельное расписание сотрудника по дням окна
func workingIntervals(serviceID int64, provider *domain.Provider, globalDaysOff []domain.DayOff, window Interval) []Interval {
	var intervals []Interval

	day := time.Date(window.Start.Year(), window.Start.Month(), window.Start.Day(), 0, 0, 0, 0, window.Start.Location())

	for !day.After(window.End) {
		if !domain.DateInDaysOff(globalDaysOff, day) && !provider.HasDayOff(day) {
			if schedule := provider.ScheduleFor(day); schedule != nil {
				intervals = append(intervals, dayIntervals(serviceID, schedule, day)...)
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	clipped := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv = iv.Clip(window); !iv.IsZero() {
			clipped = append(clipped, iv)
		}
	}

	return Merge(clipped)
}

// dayIntervals возвращает рабочие интервалы одного дня: под-периоды, открытые
// для услуги, либо весь рабочий день, минус перерывы
func dayIntervals(serviceID int64, schedule *domain.WeekDaySchedule, day time.Time) []Interval {
	var base []Interval

	if len(schedule.Periods) > 0 {
		for i := range schedule.Periods {
			period := &schedule.Periods[i]
			if !period.AllowsService(serviceID) {
				continue
			}
			if iv, ok := rangeAt(period.TimeRange, day); ok {
				base = append(base, iv)
			}
		}
	} else {
		if iv, ok := rangeAt(domain.TimeRange{Start: schedule.Start, End: schedule.End}, day); ok {
			base = append(base, iv)
		}
	}

	var breaks []Interval
	for _, br := range schedule.Breaks {
		if iv, ok := rangeAt(br, day); ok {
			breaks = append(breaks, iv)
		}
	}

	return Subtract(base, breaks)
}

func rangeAt(tr domain.TimeRange, day time.Time) (Interval, bool) {
	start, err := tr.Start.At(day)
	if err != nil {
		return Interval{}, false
	}
	end, err := tr.End.At(day)
	if err != nil {
		return Interval{}, false
	}
	iv := Interval{Start: start, End: end}
	return iv, !iv.IsZero()
}

// splitBusy разделяет записи сотрудника на блокирующие интервалы и joinable-слоты
func splitBusy(service *domain.Service, provider *domain.Provider, window Interval, opts Options) ([]Interval, []JoinableSlot) {
	var busy []Interval
	var joinable []JoinableSlot

	for _, appt := range provider.Appointments {
		if appt.ID != 0 && appt.ID == opts.ExcludeAppointmentID {
			continue
		}

		blocking := appt.Status == domain.StatusApproved ||
			(appt.Status == domain.StatusPending && !opts.AllowBookingIfPending)
		if !blocking {
			continue
		}

		iv := Interval{Start: appt.BookingStart, End: appt.BookingEnd}
		if !iv.Overlaps(window) {
			continue
		}

		// Запись на ту же услугу блокирует интервал полностью только когда
		// суммарное число человек превысило бы максимальную вместимость
		if appt.ServiceID == service.ID && sameLocation(appt.LocationID, opts.LocationID) {
			persons := appt.ActivePersons()
			if persons+opts.PersonsCount <= service.MaxCapacity {
				joinable = append(joinable, JoinableSlot{
					AppointmentID: appt.ID,
					Interval:      iv,
					Persons:       persons,
				})
				continue
			}
		}

		busy = append(busy, iv)
	}

	return busy, joinable
}

func sameLocation(apptLocation, requested *int64) bool {
	if requested == nil || apptLocation == nil {
		return true
	}
	return *apptLocation == *requested
}
