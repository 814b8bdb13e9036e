package models

import "time"

// CreditSource records which producer granted a credit.
type CreditSource string

const (
	CreditSourcePurchase CreditSource = "purchase"
	CreditSourceManual   CreditSource = "manual"
)

// SessionCredit is a package of prepaid sessions with a single expiry.
// 0 <= SessionsRemaining <= SessionsTotal always holds.
type SessionCredit struct {
	ID                string       `bson:"id" json:"id"`
	CustomerID        string       `bson:"customerId" json:"customerId"`
	SessionsRemaining int          `bson:"sessionsRemaining" json:"sessionsRemaining"`
	SessionsTotal     int          `bson:"sessionsTotal" json:"sessionsTotal"`
	ExpiresAt         time.Time    `bson:"expiresAt" json:"expiresAt"`
	CreatedAt         time.Time    `bson:"createdAt" json:"createdAt"`
	Source            CreditSource `bson:"source" json:"source"`
	PurchaseRef       string       `bson:"purchaseRef,omitempty" json:"purchaseRef,omitempty"`
}

// Usable reports whether the credit can pay for a booking at now.
func (c SessionCredit) Usable(now time.Time) bool {
	return c.SessionsRemaining > 0 && now.Before(c.ExpiresAt)
}

// CreditRef points at the credit a single session was drawn from.
type CreditRef struct {
	CreditID   string `json:"creditId"`
	CustomerID string `json:"customerId"`
}

// SessionUsage links a booking to the credit it consumed. A booking has at
// most one live usage; deleting it is what makes a refund happen only once.
type SessionUsage struct {
	ID           string    `bson:"id" json:"id"`
	BookingID    string    `bson:"bookingId" json:"bookingId"`
	CreditID     string    `bson:"creditId" json:"creditId"`
	CustomerID   string    `bson:"customerId" json:"customerId"`
	SessionsUsed int       `bson:"sessionsUsed" json:"sessionsUsed"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Ref returns the credit reference recorded by the usage.
func (u SessionUsage) Ref() CreditRef {
	return CreditRef{CreditID: u.CreditID, CustomerID: u.CustomerID}
}
