package domain

import "time"

// Address is one entry in a customer's address book.
type Address struct {
	ID         string `json:"id"`
	CustomerID string `json:"-"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	StreetName string `json:"streetName"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Snapshot copies the address into an order-owned value object.
func (a Address) Snapshot() OrderAddress {
	return OrderAddress{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		StreetName: a.StreetName,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Customer represents a registered user.
type Customer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Addresses    []Address `json:"addresses,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
