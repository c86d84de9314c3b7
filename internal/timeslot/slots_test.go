package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

func TestSlots_DiscretizationWithBreakAndBusyHour(t *testing.T) {
	// Рабочий день 09:00-17:00, перерыв 12:00-13:00, занято 10:00-11:00,
	// 30-минутная услуга
	free := map[int64]ProviderFreeTime{
		1: {Free: []Interval{
			iv(t, "2025-10-15 09:00", "2025-10-15 10:00"),
			iv(t, "2025-10-15 11:00", "2025-10-15 12:00"),
			iv(t, "2025-10-15 13:00", "2025-10-15 17:00"),
		}},
	}

	slots := Slots(free, 30*time.Minute, 30*time.Minute, SlotOptions{})

	require.Contains(t, slots, "2025-10-15")
	want := []string{
		"09:00", "09:30",
		"11:00", "11:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	}
	assert.Len(t, slots["2025-10-15"], len(want))
	for _, clock := range want {
		assert.True(t, slots.Has("2025-10-15", clock), "missing slot %s", clock)
	}
	for _, clock := range []string{"10:00", "10:30", "12:00", "12:30", "17:00"} {
		assert.False(t, slots.Has("2025-10-15", clock), "unexpected slot %s", clock)
	}
}

func TestSlots_ContainmentProperty(t *testing.T) {
	// Каждый выданный слот целиком лежит в одном свободном интервале
	free := map[int64]ProviderFreeTime{
		1: {Free: []Interval{
			iv(t, "2025-10-15 09:00", "2025-10-15 09:50"),
			iv(t, "2025-10-15 10:10", "2025-10-15 11:00"),
		}},
	}
	required := 30 * time.Minute

	slots := Slots(free, required, 30*time.Minute, SlotOptions{})

	for date, times := range slots {
		for clock := range times {
			start := at(t, date+" "+clock)
			contained := false
			for _, interval := range free[1].Free {
				if interval.Contains(Interval{Start: start, End: start.Add(required)}) {
					contained = true
				}
			}
			assert.True(t, contained, "slot %s %s sticks out of free time", date, clock)
		}
	}

	// 09:30+30m = 10:00 > 09:50 — слот не влезает
	assert.False(t, slots.Has("2025-10-15", "09:30"))
	assert.True(t, slots.Has("2025-10-15", "09:00"))
	assert.True(t, slots.Has("2025-10-15", "10:10"))
}

func TestSlots_ServiceDurationAsStep(t *testing.T) {
	free := map[int64]ProviderFreeTime{
		1: {Free: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 12:00")}},
	}

	slots := Slots(free, 45*time.Minute, 30*time.Minute, SlotOptions{UseServiceDurationAsSlot: true})

	require.Contains(t, slots, "2025-10-15")
	assert.True(t, slots.Has("2025-10-15", "09:00"))
	assert.True(t, slots.Has("2025-10-15", "09:45"))
	assert.True(t, slots.Has("2025-10-15", "10:30"))
	assert.True(t, slots.Has("2025-10-15", "11:15"))
	assert.False(t, slots.Has("2025-10-15", "09:30"), "step must follow the service duration")
	assert.Len(t, slots["2025-10-15"], 4)
}

func TestSlots_BookingTimeWindow(t *testing.T) {
	free := map[int64]ProviderFreeTime{
		1: {Free: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 17:00")}},
	}

	slots := Slots(free, 30*time.Minute, 30*time.Minute, SlotOptions{
		MinimumBookingTime: at(t, "2025-10-15 11:00"),
		MaximumBookingTime: at(t, "2025-10-15 13:00"),
	})

	assert.False(t, slots.Has("2025-10-15", "10:30"), "before lead time")
	assert.True(t, slots.Has("2025-10-15", "11:00"))
	assert.True(t, slots.Has("2025-10-15", "13:00"), "maximum is inclusive")
	assert.False(t, slots.Has("2025-10-15", "13:30"), "beyond the horizon")
}

func TestSlots_JoinableEmittedAtOwnStart(t *testing.T) {
	free := map[int64]ProviderFreeTime{
		1: {
			Free: []Interval{iv(t, "2025-10-15 13:00", "2025-10-15 14:00")},
			Joinable: []JoinableSlot{
				{AppointmentID: 7, Interval: iv(t, "2025-10-15 10:15", "2025-10-15 10:45"), Persons: 2},
			},
		},
	}

	slots := Slots(free, 30*time.Minute, 30*time.Minute, SlotOptions{})

	assert.True(t, slots.Has("2025-10-15", "10:15"), "joinable appointment keeps its exact start bookable")
	assert.False(t, slots.Has("2025-10-15", "10:45"))
	assert.True(t, slots.Has("2025-10-15", "13:00"))
}

func TestSlots_MultipleProvidersMergedSorted(t *testing.T) {
	free := map[int64]ProviderFreeTime{
		2: {Free: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 10:00")}},
		1: {Free: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 09:30")}},
	}

	slots := Slots(free, 30*time.Minute, 30*time.Minute, SlotOptions{})

	assert.Equal(t, []int64{1, 2}, slots.Providers("2025-10-15", "09:00"))
	assert.Equal(t, []int64{2}, slots.Providers("2025-10-15", "09:30"))
	assert.Nil(t, slots.Providers("2025-10-15", "10:00"))
	assert.Nil(t, slots.Providers("2025-10-16", "09:00"))
}

func TestSlots_Idempotent(t *testing.T) {
	free := map[int64]ProviderFreeTime{
		1: {Free: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 11:00")}},
		2: {Free: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 11:00")}},
	}

	first := Slots(free, 30*time.Minute, 30*time.Minute, SlotOptions{})
	second := Slots(free, 30*time.Minute, 30*time.Minute, SlotOptions{})

	assert.Equal(t, first, second)
}

func TestEligibleProviders(t *testing.T) {
	service := &domain.Service{ID: 10, Duration: 1800, MinCapacity: 1, MaxCapacity: 3}
	start := at(t, "2025-10-15 10:00")

	full := appointment(t, 1, 10, "2025-10-15 10:00", "2025-10-15 10:30", domain.StatusApproved, 2)
	providers := map[int64]*domain.Provider{
		1: {ID: 1, ServiceIDs: []int64{10}, Appointments: []*domain.Appointment{full}},
		2: {ID: 2, ServiceIDs: []int64{10}},
		3: {ID: 3, ServiceIDs: []int64{99}},
	}

	// 2 уже набрано у первого: 2+2 > 3
	assert.Equal(t, []int64{2}, EligibleProviders([]int64{1, 2, 3}, service, providers, start, 2))

	// 2+1 <= 3 — первый снова подходит, третий не оказывает услугу
	assert.Equal(t, []int64{1, 2}, EligibleProviders([]int64{1, 2, 3}, service, providers, start, 1))

	// Неизвестный кандидат отбрасывается
	assert.Empty(t, EligibleProviders([]int64{42}, service, providers, start, 1))
}
