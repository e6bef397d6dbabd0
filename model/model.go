package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusDraft, StatusPaid, StatusShipped, StatusCancelled}

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return st, false
}

type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Order struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer"`
	Status     Status    `db:"status" json:"status"`
	TotalCents *int64    `db:"total_cents" json:"total_cents"`
	IsArchived bool      `db:"is_archived" json:"is_archived"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID             int64  `db:"id" json:"id"`
	OrderID        int64  `db:"order_id" json:"order"`
	SKU            string `db:"sku" json:"sku"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
}

func (i OrderItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// SpenderRow is one line of the top-spenders summary.
type SpenderRow struct {
	CustomerID int64  `db:"customer_id" json:"customer_id"`
	Email      string `db:"email" json:"email"`
	OrderCount int64  `db:"order_count" json:"order_count"`
	TotalCents int64  `db:"total_spent" json:"total_cents"`
}
