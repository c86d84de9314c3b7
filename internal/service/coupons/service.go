package coupons

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	couponRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/coupon"
)

// Service сервис проверки купонов
type Service struct {
	couponRepo CouponRepository
	logger     Logger
}

// NewService создает новый экземпляр сервиса купонов
func NewService(couponRepo CouponRepository, logger Logger) *Service {
	return &Service{
		couponRepo: couponRepo,
		logger:     logger,
	}
}

// Validate проверяет применимость купона к бронируемой сущности.
//
// Неизвестный код и неприменимый купон различаются: клиентская форма
// показывает для них разные сообщения. customerID = 0 (новый клиент)
// пропускает проверку лимита: у нового клиента использований нет
func (s *Service) Validate(ctx context.Context, code string, entityType string, entityID int64, customerID int64) (*domain.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, couponRepo.ErrCouponNotFound) {
			s.logger.Warn("Validate: unknown coupon code=%q", code)
			return nil, ErrCouponUnknown
		}
		s.logger.Error("Validate: repository error for code=%q: %v", code, err)
		return nil, fmt.Errorf("%w: Validate - repository error: %v", ErrInternal, err)
	}

	if !coupon.AppliesTo(entityType, entityID) {
		s.logger.Warn("Validate: coupon=%d not bound to %s=%d", coupon.ID, entityType, entityID)
		return nil, ErrCouponInvalid
	}

	if coupon.Limit > 0 && customerID != 0 {
		used, err := s.couponRepo.CountUsedByCustomer(ctx, coupon.ID, customerID)
		if err != nil {
			s.logger.Error("Validate: usage count error for coupon=%d customer=%d: %v", coupon.ID, customerID, err)
			return nil, fmt.Errorf("%w: Validate - usage count error: %v", ErrInternal, err)
		}
		if used >= coupon.Limit {
			s.logger.Warn("Validate: coupon=%d limit reached for customer=%d (%d/%d)",
				coupon.ID, customerID, used, coupon.Limit)
			return nil, ErrCouponInvalid
		}
	}

	return coupon, nil
}
