package models

import "time"

const (
	EventOrderCancelled = "order.cancelled"
	EventOrderArchived  = "order.archived"
	EventSeedCompleted  = "seed.completed"
)

// Event is the message published to the order events queue after a write commits.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OrderID    int64       `json:"order_id,omitempty"`
	CustomerID int64       `json:"customer_id,omitempty"`
	Status     string      `json:"status,omitempty"`
	IsArchived *bool       `json:"is_archived,omitempty"`
	Seed       *SeedCounts `json:"seed,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type SeedCounts struct {
	BatchID   string `json:"batch_id"`
	Customers int    `json:"customers"`
	Orders    int    `json:"orders"`
	Items     int    `json:"items"`
}
