package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutState int

const (
	StateIdle CheckoutState = iota
	StateDetails
	StateSuccess
)

func (s CheckoutState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetails:
		return "details"
	case StateSuccess:
		return "success"
	default:
		return "unknown"
	}
}

func (s CheckoutState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CustomerDetails are the fields the customer types in.
type CustomerDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CustomerInfo struct {
	CustomerDetails
	Location *Coordinates `json:"location"`
}

// StoreIdentity is the static storefront configuration an order is addressed with.
type StoreIdentity struct {
	Name        string
	Destination string
}

// Order is what gets handed to the outbound channel on confirmation.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"sessionId"`
	Destination string          `json:"destination"`
	Message     string          `json:"message"`
	Link        string          `json:"link"`
	Total       decimal.Decimal `json:"total"`
	Items       []CartItem      `json:"items"`
	Customer    CustomerInfo    `json:"customer"`
	PlacedAt    time.Time       `json:"placedAt"`
}

type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

type OrderSink interface {
	Send(ctx context.Context, order Order) error
}
