package domain

import "time"

type Address struct {
	ID         string
	UserID     string
	Name       string
	Address1   string
	Address2   string
	PostalCode string
	City       string
	Country    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AddressSnapshot is the frozen copy of an address stored on an order.
type AddressSnapshot struct {
	Name       string `json:"name"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Name:       a.Name,
		Address1:   a.Address1,
		Address2:   a.Address2,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
	}
}
