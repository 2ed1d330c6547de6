package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrBasketNotFound     = errors.New("basket not found")
	ErrBasketHasNoOwner   = errors.New("basket has no owner")
	ErrBasketNotOpen      = errors.New("basket is not open")
	ErrBasketEmpty        = errors.New("basket is empty")
	ErrBasketLineNotFound = errors.New("basket line not found")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrAddressNotFound    = errors.New("address not found")
	ErrAddressNotOwned    = errors.New("address does not belong to basket owner")
	ErrProductNotFound    = errors.New("product not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidStatus      = errors.New("invalid status transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("login required")
	ErrForbidden          = errors.New("forbidden")
	ErrNoSession          = errors.New("no session")
	ErrImagesDisabled     = errors.New("image storage not configured")
)
