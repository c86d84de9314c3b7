package get_free_slots

import "fmt"

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if req.PersonsCount <= 0 {
		return fmt.Errorf("%w: personsCount must be positive", ErrInvalidInput)
	}

	if req.DateFrom.IsZero() || req.DateTo.IsZero() {
		return fmt.Errorf("%w: dateFrom and dateTo are required", ErrInvalidInput)
	}

	if req.DateTo.Before(req.DateFrom) {
		return fmt.Errorf("%w: dateTo is before dateFrom", ErrInvalidDateRange)
	}

	for _, extra := range req.Extras {
		if extra.ExtraID <= 0 || extra.Quantity <= 0 {
			return fmt.Errorf("%w: extras must have positive id and quantity", ErrInvalidInput)
		}
	}

	return nil
}
