package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type AddressService struct {
	db  port.DatabaseRepository
	now func() time.Time
}

func NewAddressService(db port.DatabaseRepository) *AddressService {
	return &AddressService{db: db, now: time.Now}
}

type AddressInput struct {
	Name       string
	Address1   string
	Address2   string
	PostalCode string
	City       string
	Country    string
}

func (in AddressInput) normalize() (AddressInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address1 = strings.TrimSpace(in.Address1)
	in.Address2 = strings.TrimSpace(in.Address2)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))

	switch {
	case in.Name == "":
		return in, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Address1 == "":
		return in, fmt.Errorf("%w: address1 is required", ErrInvalidInput)
	case in.PostalCode == "":
		return in, fmt.Errorf("%w: postal code is required", ErrInvalidInput)
	case in.City == "":
		return in, fmt.Errorf("%w: city is required", ErrInvalidInput)
	case !isCountryCode(in.Country):
		return in, fmt.Errorf("%w: country must be a two-letter code", ErrInvalidInput)
	}
	return in, nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *AddressService) Create(ctx context.Context, actor Actor, in AddressInput) (*domain.Address, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	now := s.now()
	addr := domain.Address{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		Name:       in.Name,
		Address1:   in.Address1,
		Address2:   in.Address2,
		PostalCode: in.PostalCode,
		City:       in.City,
		Country:    in.Country,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.CreateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *AddressService) List(ctx context.Context, actor Actor) ([]domain.Address, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.db.ListAddresses(ctx, actor.UserID)
}

// Update edits an address in place. Orders already placed keep their own
// copy of it.
func (s *AddressService) Update(ctx context.Context, actor Actor, id string, in AddressInput) (*domain.Address, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	addr, err := s.db.GetAddress(ctx, id)
	if err != nil {
		return nil, err
	}
	if addr == nil || addr.UserID != actor.UserID {
		return nil, ErrAddressNotFound
	}

	addr.Name = in.Name
	addr.Address1 = in.Address1
	addr.Address2 = in.Address2
	addr.PostalCode = in.PostalCode
	addr.City = in.City
	addr.Country = in.Country
	addr.UpdatedAt = s.now()
	if err := s.db.UpdateAddress(ctx, *addr); err != nil {
		if errors.Is(err, port.ErrConflict) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return addr, nil
}
