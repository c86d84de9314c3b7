package domain

import "time"

// Service represents a bookable service
type Service struct {
	ID         int64
	CategoryID int64
	Name       string

	// Duration длительность услуги в секундах
	Duration int

	Price           float64
	AggregatedPrice bool // цена за человека, а не за бронирование

	MinCapacity int
	MaxCapacity int

	Extras []Extra
}

// DurationTime returns the service duration as time.Duration
func (s *Service) DurationTime() time.Duration {
	return time.Duration(s.Duration) * time.Second
}

// IsValid returns true if the service satisfies its base invariants
func (s *Service) IsValid() bool {
	return s.Duration > 0 && s.MinCapacity >= 1 && s.MinCapacity <= s.MaxCapacity
}

// Extra дополнительная опция услуги (может удлинять услугу и менять цену)
type Extra struct {
	ID          int64
	ServiceID   int64
	Name        string
	Duration    int // секунды, 0 = не влияет на длительность
	Price       float64
	MaxQuantity int

	// AggregatedPrice nil = наследуется от услуги
	AggregatedPrice *bool
}

// FindExtra returns the extra with the given id, or nil
func (s *Service) FindExtra(extraID int64) *Extra {
	for i := range s.Extras {
		if s.Extras[i].ID == extraID {
			return &s.Extras[i]
		}
	}
	return nil
}
