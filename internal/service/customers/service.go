package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	customerRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/customer"
)

// Service сервис разрешения клиента при бронировании
type Service struct {
	customerRepo CustomerRepository
	logger       Logger
}

// NewService создает новый экземпляр сервиса клиентов
func NewService(customerRepo CustomerRepository, logger Logger) *Service {
	return &Service{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// GetOrCreate находит клиента по email или создает нового.
// Возвращает признак isNew: для нового клиента конвейер бронирования
// пропускает проверку лимита купона и отправляет приветственное письмо
func (s *Service) GetOrCreate(ctx context.Context, info *domain.Customer) (*domain.Customer, bool, error) {
	email := strings.TrimSpace(info.Email)
	if email == "" {
		return nil, false, ErrEmailRequired
	}

	existing, err := s.customerRepo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, customerRepo.ErrCustomerNotFound) {
		s.logger.Error("GetOrCreate: lookup error for email=%s: %v", email, err)
		return nil, false, fmt.Errorf("%w: GetOrCreate - lookup error: %v", ErrInternal, err)
	}

	info.Email = email
	created, err := s.customerRepo.Create(ctx, info)
	if err != nil {
		s.logger.Error("GetOrCreate: create error for email=%s: %v", email, err)
		return nil, false, fmt.Errorf("%w: GetOrCreate - create error: %v", ErrInternal, err)
	}

	s.logger.Info("GetOrCreate: created customer id=%d email=%s", created.ID, email)
	return created, true, nil
}
