package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductAdded struct {
	ProductID string
	Name      string
}

func (e ProductAdded) Type() string { return "ProductAdded" }

type ProductRemoved struct {
	ProductID string
}

func (e ProductRemoved) Type() string { return "ProductRemoved" }

type CheckoutStarted struct {
	SessionID uuid.UUID
	Lines     int
}

func (e CheckoutStarted) Type() string { return "CheckoutStarted" }

type CheckoutCancelled struct {
	SessionID uuid.UUID
}

func (e CheckoutCancelled) Type() string { return "CheckoutCancelled" }

type LocationCaptured struct {
	SessionID uuid.UUID
	Location  Coordinates
}

func (e LocationCaptured) Type() string { return "LocationCaptured" }

type OrderPlaced struct {
	OrderID   uuid.UUID
	SessionID uuid.UUID
	Total     decimal.Decimal
}

func (e OrderPlaced) Type() string { return "OrderPlaced" }

type CheckoutReset struct {
	SessionID uuid.UUID
}

func (e CheckoutReset) Type() string { return "CheckoutReset" }
