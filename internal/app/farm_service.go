package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dairydesk/internal/cache"
	"dairydesk/internal/model"
	"dairydesk/internal/repository"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrMilkNotFound     = errors.New("milk record not found")
	ErrPaymentNotFound  = errors.New("payment not found")
)

// FarmService owns the customer, milk-collection, and payment records of an
// authenticated farm owner. Every query is scoped to the owner's user id;
// milk and payment rows are reached through their customer's ownership.
//
// The customer list is the hot read path (the mobile client refreshes it on
// every screen), so it sits behind a Redis cache with a dirty marker. Cache
// failures are logged and fall through to MySQL.
type FarmService struct {
	customerRepo *repository.CustomerRepository
	milkRepo     *repository.MilkRepository
	paymentRepo  *repository.PaymentRepository
	customers    *cache.CustomerCache
	logger       *slog.Logger
}

func NewFarmService(
	customerRepo *repository.CustomerRepository,
	milkRepo *repository.MilkRepository,
	paymentRepo *repository.PaymentRepository,
	customers *cache.CustomerCache,
	logger *slog.Logger,
) *FarmService {
	return &FarmService{
		customerRepo: customerRepo,
		milkRepo:     milkRepo,
		paymentRepo:  paymentRepo,
		customers:    customers,
		logger:       logger,
	}
}

type CustomerInput struct {
	Name    string
	Phone   string
	Address string
}

type CustomerUpdateInput struct {
	Name    *string
	Phone   *string
	Address *string
}

func (s *FarmService) AddCustomer(ctx context.Context, userID uint, input CustomerInput) (*model.Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidInput
	}
	customer := &model.Customer{
		Name:    strings.TrimSpace(input.Name),
		Phone:   strings.TrimSpace(input.Phone),
		Address: strings.TrimSpace(input.Address),
		UserID:  userID,
	}
	if err := s.customerRepo.Create(customer); err != nil {
		return nil, err
	}
	s.invalidateCustomers(ctx, userID)
	return customer, nil
}

func (s *FarmService) ListCustomers(ctx context.Context, userID uint) ([]model.Customer, error) {
	if s.customers != nil {
		dirty, err := s.customers.IsDirty(ctx, userID)
		if err != nil {
			s.logger.Warn("customer cache dirty check failed", "user_id", userID, "error", err)
		} else if !dirty {
			if cached, ok, err := s.customers.GetList(ctx, userID); err != nil {
				s.logger.Warn("customer cache read failed", "user_id", userID, "error", err)
			} else if ok {
				return cached, nil
			}
		}
	}

	customers, err := s.customerRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	if s.customers != nil {
		if err := s.customers.SetList(ctx, userID, customers); err != nil {
			s.logger.Warn("customer cache write failed", "user_id", userID, "error", err)
		}
	}
	return customers, nil
}

func (s *FarmService) UpdateCustomer(ctx context.Context, userID, id uint, input CustomerUpdateInput) (*model.Customer, error) {
	customer, err := s.customerRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	if input.Name != nil {
		customer.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		customer.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		customer.Address = strings.TrimSpace(*input.Address)
	}
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, err
	}
	s.invalidateCustomers(ctx, userID)
	return customer, nil
}

func (s *FarmService) DeleteCustomer(ctx context.Context, userID, id uint) error {
	customer, err := s.customerRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrCustomerNotFound
	}
	if err := s.customerRepo.Delete(customer); err != nil {
		return err
	}
	s.invalidateCustomers(ctx, userID)
	return nil
}

type MilkInput struct {
	CustomerID    uint
	Date          time.Time
	Quantity      float64
	Fat           float64
	PricePerLitre float64
	TotalPrice    float64
}

type MilkUpdateInput struct {
	Date          *time.Time
	Quantity      *float64
	Fat           *float64
	PricePerLitre *float64
	TotalPrice    *float64
}

func (s *FarmService) AddMilkRecord(ctx context.Context, userID uint, input MilkInput) (*model.MilkRecord, error) {
	if input.CustomerID == 0 {
		return nil, ErrInvalidInput
	}
	customer, err := s.customerRepo.GetByIDAndUserID(input.CustomerID, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	record := &model.MilkRecord{
		CustomerID:    input.CustomerID,
		Date:          input.Date,
		Quantity:      input.Quantity,
		Fat:           input.Fat,
		PricePerLitre: input.PricePerLitre,
		TotalPrice:    input.TotalPrice,
	}
	if record.TotalPrice == 0 {
		record.TotalPrice = record.Quantity * record.PricePerLitre
	}
	if err := s.milkRepo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *FarmService) ListMilkRecords(userID uint) ([]model.MilkRecord, error) {
	return s.milkRepo.ListByUserID(userID)
}

func (s *FarmService) UpdateMilkRecord(userID, id uint, input MilkUpdateInput) (*model.MilkRecord, error) {
	record, err := s.milkRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrMilkNotFound
	}

	if input.Date != nil {
		record.Date = *input.Date
	}
	if input.Quantity != nil {
		record.Quantity = *input.Quantity
	}
	if input.Fat != nil {
		record.Fat = *input.Fat
	}
	if input.PricePerLitre != nil {
		record.PricePerLitre = *input.PricePerLitre
	}
	if input.TotalPrice != nil {
		record.TotalPrice = *input.TotalPrice
	}
	if err := s.milkRepo.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *FarmService) DeleteMilkRecord(userID, id uint) error {
	record, err := s.milkRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrMilkNotFound
	}
	return s.milkRepo.Delete(record)
}

type PaymentInput struct {
	CustomerID  uint
	AmountPaid  float64
	Date        time.Time
	PaymentMode string
}

type PaymentUpdateInput struct {
	AmountPaid  *float64
	Date        *time.Time
	PaymentMode *string
}

func (s *FarmService) AddPayment(ctx context.Context, userID uint, input PaymentInput) (*model.Payment, error) {
	if input.CustomerID == 0 {
		return nil, ErrInvalidInput
	}
	customer, err := s.customerRepo.GetByIDAndUserID(input.CustomerID, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	payment := &model.Payment{
		CustomerID:  input.CustomerID,
		AmountPaid:  input.AmountPaid,
		Date:        input.Date,
		PaymentMode: input.PaymentMode,
	}
	if payment.PaymentMode == "" {
		payment.PaymentMode = model.PaymentModeCash
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *FarmService) ListPayments(userID uint) ([]model.Payment, error) {
	return s.paymentRepo.ListByUserID(userID)
}

func (s *FarmService) UpdatePayment(userID, id uint, input PaymentUpdateInput) (*model.Payment, error) {
	payment, err := s.paymentRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if input.AmountPaid != nil {
		payment.AmountPaid = *input.AmountPaid
	}
	if input.Date != nil {
		payment.Date = *input.Date
	}
	if input.PaymentMode != nil {
		payment.PaymentMode = *input.PaymentMode
	}
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *FarmService) DeletePayment(userID, id uint) error {
	payment, err := s.paymentRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	return s.paymentRepo.Delete(payment)
}

func (s *FarmService) invalidateCustomers(ctx context.Context, userID uint) {
	if s.customers == nil {
		return
	}
	if err := s.customers.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("customer cache invalidation failed", "user_id", userID, "error", err)
	}
	if err := s.customers.MarkDirty(ctx, userID); err != nil {
		s.logger.Warn("customer cache dirty mark failed", "user_id", userID, "error", err)
	}
}
