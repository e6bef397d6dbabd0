package orders

import (
	"bytes"
	"encoding/json"
)

// CustomerFields carries a customer create or update. Nil fields are absent.
type CustomerFields struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
}

type OrderFields struct {
	Customer   *int64        `json:"customer"`
	Status     *string       `json:"status"`
	TotalCents OptionalInt64 `json:"total_cents"`
	IsArchived *bool         `json:"is_archived"`
}

type ItemFields struct {
	Order          *int64  `json:"order"`
	SKU            *string `json:"sku"`
	Quantity       *int    `json:"quantity"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
}

// OptionalInt64 tells an absent JSON field (Set false) apart from an
// explicit null (Set true, Value nil).
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

func (o *OptionalInt64) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ListFilter holds the raw query parameters of an order listing.
type ListFilter struct {
	Status *string
	Email  *string
}
