package get_free_slots

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
	getFreeSlots "github.com/kirillmaftuljak/WPKHK/internal/usecase/get_free_slots"
)

// FreeSlotsResponse HTTP response model
type FreeSlotsResponse struct {
	ServiceID int64 `json:"serviceId"`

	// Slots дата -> время начала -> сотрудники, доступные в этот слот
	Slots timeslot.SlotMap `json:"slots"`
}

// ToUseCaseRequest собирает запрос use case из path и query параметров.
// Параметр extras задается списком "extraId:quantity" через запятую
func ToUseCaseRequest(serviceID int64, query url.Values, isBackend bool) (*getFreeSlots.Request, error) {
	req := &getFreeSlots.Request{
		ServiceID:    serviceID,
		PersonsCount: 1,
		IsBackend:    isBackend,
	}

	if raw := query.Get("providerId"); raw != "" {
		providerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid providerId: %v", err)
		}
		req.ProviderID = providerID
	}

	if raw := query.Get("locationId"); raw != "" {
		locationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid locationId: %v", err)
		}
		req.LocationID = &locationID
	}

	if raw := query.Get("persons"); raw != "" {
		persons, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid persons: %v", err)
		}
		req.PersonsCount = persons
	}

	dateFrom, err := time.Parse(domain.DateFormat, query.Get("dateFrom"))
	if err != nil {
		return nil, fmt.Errorf("invalid dateFrom: %v", err)
	}
	dateTo, err := time.Parse(domain.DateFormat, query.Get("dateTo"))
	if err != nil {
		return nil, fmt.Errorf("invalid dateTo: %v", err)
	}
	req.DateFrom = dateFrom
	req.DateTo = dateTo

	if raw := query.Get("excludeAppointmentId"); raw != "" {
		excludeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid excludeAppointmentId: %v", err)
		}
		req.ExcludeAppointmentID = excludeID
	}

	if raw := query.Get("extras"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid extras entry %q", pair)
			}
			extraID, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid extras entry %q: %v", pair, err)
			}
			quantity, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid extras entry %q: %v", pair, err)
			}
			req.Extras = append(req.Extras, getFreeSlots.SelectedExtra{ExtraID: extraID, Quantity: quantity})
		}
	}

	return req, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getFreeSlots.Response) *FreeSlotsResponse {
	return &FreeSlotsResponse{
		ServiceID: resp.ServiceID,
		Slots:     resp.Slots,
	}
}
