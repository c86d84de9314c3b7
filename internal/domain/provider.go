package domain

import (
	"time"

	"github.com/kirillmaftuljak/WPKHK/pkg/types"
)

// Provider сотрудник, оказывающий услуги
type Provider struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string

	LocationID *int64

	// ServiceIDs услуги, назначенные сотруднику
	ServiceIDs []int64

	// WeekDays недельное расписание, dayIndex 1 (понедельник) .. 7 (воскресенье)
	WeekDays []WeekDaySchedule

	DaysOff []DayOff

	// Appointments рабочий набор записей, загружается перед расчетом слотов
	Appointments []*Appointment

	GoogleCalendarID *string
}

// Serves returns true if the service is assigned to the provider
func (p *Provider) Serves(serviceID int64) bool {
	for _, id := range p.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// ScheduleFor returns the schedule entry for the weekday of the given date, or nil.
// time.Weekday нумерует с воскресенья, dayIndex — с понедельника
func (p *Provider) ScheduleFor(date time.Time) *WeekDaySchedule {
	dayIndex := int(date.Weekday())
	if dayIndex == 0 {
		dayIndex = 7
	}
	for i := range p.WeekDays {
		if p.WeekDays[i].DayIndex == dayIndex {
			return &p.WeekDays[i]
		}
	}
	return nil
}

// HasDayOff returns true if the date falls into one of the provider's days off
func (p *Provider) HasDayOff(date time.Time) bool {
	return dateInDaysOff(p.DaysOff, date)
}

// WeekDaySchedule рабочий день недели с перерывами и необязательными под-периодами
type WeekDaySchedule struct {
	ID       int64
	DayIndex int // 1-7
	Start    types.TimeString
	End      types.TimeString

	// Breaks перерывы внутри [Start, End), не пересекаются
	Breaks []TimeRange

	// Periods под-периоды с собственным набором услуг; пустой список услуг
	// в периоде означает все услуги сотрудника
	Periods []SchedulePeriod
}

// TimeRange интервал внутри рабочего дня, [Start, End)
type TimeRange struct {
	Start types.TimeString
	End   types.TimeString
}

// SchedulePeriod под-период рабочего дня, ограниченный списком услуг
type SchedulePeriod struct {
	TimeRange
	ServiceIDs []int64
}

// AllowsService returns true if the period is open for the given service
func (p *SchedulePeriod) AllowsService(serviceID int64) bool {
	if len(p.ServiceIDs) == 0 {
		return true
	}
	for _, id := range p.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// DayOff нерабочий день (сотрудника или глобальный)
type DayOff struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time

	// Repeat ежегодное повторение (сравнение без года)
	Repeat bool
}

// Covers returns true if the date falls into the day-off range
func (d *DayOff) Covers(date time.Time) bool {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(d.StartDate.Year(), d.StartDate.Month(), d.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(d.EndDate.Year(), d.EndDate.Month(), d.EndDate.Day(), 0, 0, 0, 0, time.UTC)

	if d.Repeat {
		// Повторяющиеся выходные сравниваются без года
		day = day.AddDate(start.Year()-day.Year(), 0, 0)
	}

	return !day.Before(start) && !day.After(end)
}

func dateInDaysOff(daysOff []DayOff, date time.Time) bool {
	for i := range daysOff {
		if daysOff[i].Covers(date) {
			return true
		}
	}
	return false
}

// DateInDaysOff reports whether the date is covered by any of the given days off
func DateInDaysOff(daysOff []DayOff, date time.Time) bool {
	return dateInDaysOff(daysOff, date)
}
