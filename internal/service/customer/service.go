// Package customer covers signup, login and the address book. Login issues an
// opaque database-backed bearer token and, when the request carries a guest
// identity, folds the guest's carts into the customer's cart.
package customer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"craftkart/internal/domain"
	tokenrepo "craftkart/internal/repository/token"
)

const tokenTTL = 30 * 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid email or password")

type customerRepo interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	AddAddress(ctx context.Context, a domain.Address) (*domain.Address, error)
	GetAddress(ctx context.Context, id string) (*domain.Address, error)
}

type tokenRepo interface {
	Create(ctx context.Context, t tokenrepo.Token) error
	Get(ctx context.Context, token string) (*tokenrepo.Token, error)
	Delete(ctx context.Context, token string) error
}

type cartMerger interface {
	MergeGuestCarts(ctx context.Context, customerID, sessionID, deviceFingerprint string) (*domain.Cart, error)
}

type Service struct {
	repo   customerRepo
	tokens tokenRepo
	carts  cartMerger
	logger *log.Logger
}

func New(repo customerRepo, tokens tokenRepo, carts cartMerger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, tokens: tokens, carts: carts, logger: logger}
}

// SignupInput carries one registration request.
type SignupInput struct {
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	FirstName string           `json:"firstName,omitempty"`
	LastName  string           `json:"lastName,omitempty"`
	Phone     string           `json:"phone,omitempty"`
	Addresses []domain.Address `json:"addresses,omitempty"`
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email required", domain.ErrBadInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrBadInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Addresses:    in.Addresses,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("customer service: signup customer=%s", created.ID)
	return created, nil
}

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Customer *domain.Customer
	Token    string
	Expires  time.Time
}

// Login verifies the credentials, issues a bearer token and merges any carts
// the caller built as a guest. A merge failure is logged but does not fail the
// login; the shopper can still see their account.
func (s *Service) Login(ctx context.Context, email, password, sessionID, deviceFingerprint string) (*LoginResult, error) {
	c, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	tok := tokenrepo.Token{
		Token:      uuid.NewString(),
		CustomerID: c.ID,
		Kind:       "bearer",
		ExpiresAt:  time.Now().UTC().Add(tokenTTL),
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return nil, err
	}

	if sessionID != "" || deviceFingerprint != "" {
		if _, err := s.carts.MergeGuestCarts(ctx, c.ID, sessionID, deviceFingerprint); err != nil {
			s.logger.Printf("customer service: guest cart merge failed customer=%s: %v", c.ID, err)
		}
	}

	s.logger.Printf("customer service: login customer=%s", c.ID)
	return &LoginResult{Customer: c, Token: tok.Token, Expires: tok.ExpiresAt}, nil
}

// Logout revokes a bearer token. Revoking an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.tokens.Delete(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// LookupByToken resolves a bearer token to its customer, rejecting expired
// tokens.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Customer, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(t.ExpiresAt) {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, t.CustomerID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// AddAddress appends an entry to the customer's address book.
func (s *Service) AddAddress(ctx context.Context, customerID string, a domain.Address) (*domain.Address, error) {
	if strings.TrimSpace(a.StreetName) == "" || strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("%w: streetName and city required", domain.ErrBadInput)
	}
	a.CustomerID = customerID
	return s.repo.AddAddress(ctx, a)
}
