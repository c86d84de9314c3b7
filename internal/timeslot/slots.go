package timeslot

import (
	"sort"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// SlotMap бронируемые слоты: дата ("2006-01-02") -> время ("15:04") ->
// отсортированный список сотрудников, доступных в этот слот.
// Двухуровневый ключ дает O(1) проверку существования слота, которой
// пользуется и IsSlotFree вместо повторного обхода интервалов
type SlotMap map[string]map[string][]int64

// Has reports whether the slot exists
func (m SlotMap) Has(date, clock string) bool {
	times, ok := m[date]
	if !ok {
		return false
	}
	_, ok = times[clock]
	return ok
}

// Providers returns the providers eligible at the slot
func (m SlotMap) Providers(date, clock string) []int64 {
	if times, ok := m[date]; ok {
		return times[clock]
	}
	return nil
}

// add регистрирует сотрудника в слоте, сохраняя сортировку и уникальность
func (m SlotMap) add(at time.Time, providerID int64) {
	date := at.Format(domain.DateFormat)
	clock := at.Format(domain.TimeFormat)

	times, ok := m[date]
	if !ok {
		times = make(map[string][]int64)
		m[date] = times
	}

	ids := times[clock]
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= providerID })
	if pos < len(ids) && ids[pos] == providerID {
		return
	}
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = providerID
	times[clock] = ids
}

// SlotOptions параметры дискретизации
type SlotOptions struct {
	// UseServiceDurationAsSlot шаг дискретизации равен требуемой длительности,
	// а не настроенной длине слота
	UseServiceDurationAsSlot bool

	// MinimumBookingTime кандидаты раньше этого момента отбрасываются
	MinimumBookingTime time.Time

	// MaximumBookingTime кандидаты позже этого момента отбрасываются
	MaximumBookingTime time.Time
}

// Slots дискретизирует свободные интервалы в бронируемые слоты.
//
// Кандидат начала слота допустим, когда [t, t+requiredDuration) целиком лежит
// в одном свободном интервале. Joinable-записи дают кандидата ровно на своем
// времени начала. Чистая функция своих аргументов
func Slots(
	freeTime map[int64]ProviderFreeTime,
	requiredDuration time.Duration,
	slotLength time.Duration,
	opts SlotOptions,
) SlotMap {
	step := slotLength
	if opts.UseServiceDurationAsSlot || step <= 0 {
		step = requiredDuration
	}

	result := make(SlotMap)

	for providerID, ft := range freeTime {
		for _, iv := range ft.Free {
			for t := iv.Start; !t.Add(requiredDuration).After(iv.End); t = t.Add(step) {
				if fitsWindow(t, opts) {
					result.add(t, providerID)
				}
			}
		}

		for _, js := range ft.Joinable {
			if fitsWindow(js.Interval.Start, opts) {
				result.add(js.Interval.Start, providerID)
			}
		}
	}

	return result
}

func fitsWindow(t time.Time, opts SlotOptions) bool {
	if !opts.MinimumBookingTime.IsZero() && t.Before(opts.MinimumBookingTime) {
		return false
	}
	if !opts.MaximumBookingTime.IsZero() && t.After(opts.MaximumBookingTime) {
		return false
	}
	return true
}

// EligibleProviders фильтр вместимости и применимости: сотрудник подходит для
// слота, если он назначен на услугу и запись вместе с уже набранными людьми
// не превысит максимальную вместимость. Возвращает пересечение кандидатов
// слота с подходящими сотрудниками; слот остается в выдаче, пока у него есть
// хотя бы один подходящий сотрудник
func EligibleProviders(
	candidates []int64,
	service *domain.Service,
	providers map[int64]*domain.Provider,
	at time.Time,
	personsCount int,
) []int64 {
	eligible := make([]int64, 0, len(candidates))

	for _, id := range candidates {
		provider, ok := providers[id]
		if !ok || !provider.Serves(service.ID) {
			continue
		}
		if aggregatedPersonsAt(provider, service.ID, at)+personsCount > service.MaxCapacity {
			continue
		}
		eligible = append(eligible, id)
	}

	return eligible
}

// aggregatedPersonsAt число человек, уже набранных в активные записи на эту
// услугу, начинающиеся в момент at
func aggregatedPersonsAt(provider *domain.Provider, serviceID int64, at time.Time) int {
	persons := 0
	for _, appt := range provider.Appointments {
		if appt.ServiceID == serviceID && appt.Status.IsActive() && appt.BookingStart.Equal(at) {
			persons += appt.ActivePersons()
		}
	}
	return persons
}
