package models

import (
	"strings"
	"time"
)

// Customer is identified by email; it is created on first purchase or intake.
type Customer struct {
	ID        string    `bson:"id" json:"id"`
	Email     string    `bson:"email" json:"email"` // always lower-cased
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CustomerProfile carries the contact details a producer knows about a customer.
type CustomerProfile struct {
	Email string
	Name  string
	Phone string
}

// NormalizeEmail gives the case-insensitive identity key for an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail compares two addresses case-insensitively.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
