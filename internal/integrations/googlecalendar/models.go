package googlecalendar

import "time"

// BusyInterval занятый отрезок внешнего календаря
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// freeBusyRequest тело запроса freeBusy
type freeBusyRequest struct {
	TimeMin time.Time        `json:"timeMin"`
	TimeMax time.Time        `json:"timeMax"`
	Items   []freeBusyItemID `json:"items"`
}

type freeBusyItemID struct {
	ID string `json:"id"`
}

// freeBusyResponse ответ freeBusy: календарь -> занятые отрезки
type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
	} `json:"calendars"`
}

// calendarEvent тело создаваемого события
type calendarEvent struct {
	ID      string            `json:"id,omitempty"`
	Summary string            `json:"summary"`
	Start   calendarEventTime `json:"start"`
	End     calendarEventTime `json:"end"`
}

type calendarEventTime struct {
	DateTime time.Time `json:"dateTime"`
}
