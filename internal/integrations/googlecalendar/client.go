package googlecalendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client клиент для работы с Google Calendar API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента Google Calendar
func NewClient(baseURL, apiKey string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetBusyIntervals получает занятые отрезки календаря через freeBusy
func (c *Client) GetBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]BusyInterval, error) {
	payload, err := json.Marshal(freeBusyRequest{
		TimeMin: from,
		TimeMax: to,
		Items:   []freeBusyItemID{{ID: calendarID}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrInternal, err)
	}

	endpoint := fmt.Sprintf("%s/freeBusy?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var decoded freeBusyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	var busy []BusyInterval
	for _, interval := range decoded.Calendars[calendarID].Busy {
		busy = append(busy, BusyInterval{Start: interval.Start, End: interval.End})
	}

	return busy, nil
}

// CreateEvent создает событие в календаре сотрудника и возвращает его id
func (c *Client) CreateEvent(ctx context.Context, calendarID, summary string, start, end time.Time) (string, error) {
	payload, err := json.Marshal(calendarEvent{
		Summary: summary,
		Start:   calendarEventTime{DateTime: start},
		End:     calendarEventTime{DateTime: end},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode event: %v", ErrInternal, err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?key=%s",
		c.baseURL, url.PathEscape(calendarID), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var created calendarEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return created.ID, nil
}

// DeleteEvent удаляет событие из календаря сотрудника
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s?key=%s",
		c.baseURL, url.PathEscape(calendarID), url.PathEscape(eventID), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrEventNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}
}

// GetBusyIntervalsWithGracefulDegradation получает занятость календаря с graceful degradation.
// При недоступности Calendar API возвращает пустой список: расчет слотов
// продолжается без внешней занятости, чтобы календарь не блокировал бронирование
func (c *Client) GetBusyIntervalsWithGracefulDegradation(ctx context.Context, calendarID string, from, to time.Time) []BusyInterval {
	busy, err := c.GetBusyIntervals(ctx, calendarID, from, to)
	if err != nil {
		c.log.Warn("Google Calendar unavailable, ignoring external busy time for calendar=%s: %v", calendarID, err)
		return nil
	}
	return busy
}
