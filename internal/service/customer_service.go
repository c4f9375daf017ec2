package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// CustomerService handles registration, login and the address book.
// Phone is the login identifier; tokens are HS256 JWTs.
type CustomerService struct {
	repos     *repository.Repositories
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(repos *repository.Repositories, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *CustomerService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &CustomerService{
		repos:     repos,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a customer account and returns a fresh token
func (s *CustomerService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	existing, err := s.repos.Customer.GetByPhone(ctx, req.Phone)
	if err != nil {
		if _, notFound := err.(*errors.ErrNotFound); !notFound {
			return nil, err
		}
	}
	if existing != nil {
		return nil, &errors.ErrConflict{Message: "phone number already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	customer := &domain.Customer{
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: &hashStr,
	}
	if req.Email != "" {
		customer.Email = &req.Email
	}

	if err := s.repos.Customer.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer registered",
		zap.String("customer_id", customer.ID.String()),
		zap.String("phone", customer.Phone),
	)

	return s.issueToken(customer)
}

// Login authenticates by phone and password. Wrong phone and wrong password
// return the same error so the response does not leak which one it was.
func (s *CustomerService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	customer, err := s.repos.Customer.GetByPhone(ctx, req.Phone)
	if err != nil {
		if _, notFound := err.(*errors.ErrNotFound); notFound {
			return nil, &errors.ErrUnauthorized{Message: "invalid phone or password"}
		}
		return nil, err
	}

	if customer.PasswordHash == nil {
		// Checkout-created customer that never set a password
		return nil, &errors.ErrUnauthorized{Message: "invalid phone or password"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*customer.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &errors.ErrUnauthorized{Message: "invalid phone or password"}
	}

	return s.issueToken(customer)
}

// GetProfile returns the customer record for the authenticated customer
func (s *CustomerService) GetProfile(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	return s.repos.Customer.GetByID(ctx, customerID)
}

// AddAddress appends an entry to the customer's address book
func (s *CustomerService) AddAddress(ctx context.Context, customerID uuid.UUID, address *domain.Address) (*domain.Address, error) {
	if address.Street == "" || address.City == "" || address.Country == "" {
		return nil, &errors.ErrValidation{
			Message: "incomplete address",
			Fields:  map[string]string{"address": "street, city and country are required"},
		}
	}
	address.CustomerID = customerID
	if err := s.repos.Address.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

// ListAddresses returns the customer's address book
func (s *CustomerService) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]*domain.Address, error) {
	return s.repos.Address.ListByCustomerID(ctx, customerID)
}

// ParseToken validates a JWT and returns the customer ID it was issued for
func (s *CustomerService) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &errors.ErrUnauthorized{Message: "unexpected signing method"}
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, &errors.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, &errors.ErrUnauthorized{Message: "invalid token"}
	}
	raw, ok := claims["customer_id"].(string)
	if !ok {
		return uuid.Nil, &errors.ErrUnauthorized{Message: "invalid token"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &errors.ErrUnauthorized{Message: "invalid token"}
	}
	return id, nil
}

func (s *CustomerService) issueToken(customer *domain.Customer) (*AuthResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"customer_id": customer.ID.String(),
		"phone":       customer.Phone,
		"iat":         now.Unix(),
		"exp":         now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	// Never hand the hash back to the client
	sanitized := *customer
	sanitized.PasswordHash = nil

	return &AuthResponse{Token: signed, Customer: &sanitized}, nil
}
