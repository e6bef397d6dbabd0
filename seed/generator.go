// Package seed generates a synthetic customer/order/item dataset.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/store"
)

type Params struct {
	Customers         int `json:"customers"`
	OrdersPerCustomer int `json:"orders_per_customer"`
	ItemsPerOrder     int `json:"items_per_order"`
}

func DefaultParams() Params {
	return Params{Customers: 100, OrdersPerCustomer: 5, ItemsPerOrder: 3}
}

// Limits are the largest accepted Params for a single request.
var Limits = Params{Customers: 10000, OrdersPerCustomer: 100, ItemsPerOrder: 100}

func (p Params) Validate() error {
	check := func(name string, v, max int) error {
		if v < 0 || v > max {
			return model.Invalid("%s must be between 0 and %d, got %d", name, max, v)
		}
		return nil
	}
	if err := check("customers", p.Customers, Limits.Customers); err != nil {
		return err
	}
	if err := check("orders_per_customer", p.OrdersPerCustomer, Limits.OrdersPerCustomer); err != nil {
		return err
	}
	return check("items_per_order", p.ItemsPerOrder, Limits.ItemsPerOrder)
}

type Result struct {
	Customers int `json:"customers"`
	Orders    int `json:"orders"`
	Items     int `json:"items"`
}

// Writer is the slice of the store a seed run writes through. Callers pass
// a transaction so that a failed run leaves nothing behind.
type Writer interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	SetCustomerEmail(ctx context.Context, id int64, email string) error
	CreateOrder(ctx context.Context, o *model.Order) error
	CreateItems(ctx context.Context, items []model.OrderItem) error
}

var prices = []int64{199, 499, 999, 1499, 2499}

type Generator struct {
	seed uint64
	now  func() time.Time
	log  logrus.FieldLogger
}

type Option func(*Generator)

// WithSeed fixes the PRNG seed of every run. Zero picks a fresh seed per run.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Generator) { g.log = log }
}

func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) rng() *rand.Rand {
	seed := g.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Run writes p.Customers customers, each with p.OrdersPerCustomer orders of
// p.ItemsPerOrder items. Items are buffered across orders and flushed in
// store.ItemBatchSize chunks. The first error aborts the run; the caller's
// transaction decides what survives.
func (g *Generator) Run(ctx context.Context, w Writer, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	r := g.rng()
	now := g.now().UTC()
	var res Result
	pending := make([]model.OrderItem, 0, min(store.ItemBatchSize, p.Customers*p.OrdersPerCustomer*p.ItemsPerOrder))

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := w.CreateItems(ctx, pending); err != nil {
			return errors.Wrap(err, "seed: write items")
		}
		res.Items += len(pending)
		pending = pending[:0]
		return nil
	}

	for c := 0; c < p.Customers; c++ {
		cust := &model.Customer{Name: randomName(r), IsActive: true, CreatedAt: now}
		if err := w.CreateCustomer(ctx, cust); err != nil {
			return Result{}, errors.Wrap(err, "seed: write customer")
		}
		cust.Email = fmt.Sprintf("user%d@example.com", cust.ID)
		if err := w.SetCustomerEmail(ctx, cust.ID, cust.Email); err != nil {
			return Result{}, errors.Wrap(err, "seed: write customer email")
		}
		res.Customers++

		for o := 0; o < p.OrdersPerCustomer; o++ {
			items := make([]model.OrderItem, p.ItemsPerOrder)
			var total int64
			for i := range items {
				items[i] = model.OrderItem{
					SKU:            fmt.Sprintf("SKU-%d", r.IntN(200)+1),
					Quantity:       r.IntN(5) + 1,
					UnitPriceCents: prices[r.IntN(len(prices))],
				}
				total += items[i].Subtotal()
			}

			order := &model.Order{CustomerID: cust.ID, Status: randomStatus(r), CreatedAt: now, UpdatedAt: now}
			if total > 0 {
				order.TotalCents = &total
			}
			if err := w.CreateOrder(ctx, order); err != nil {
				return Result{}, errors.Wrap(err, "seed: write order")
			}
			res.Orders++

			for i := range items {
				items[i].OrderID = order.ID
			}
			pending = append(pending, items...)
			if len(pending) >= store.ItemBatchSize {
				if err := flush(); err != nil {
					return Result{}, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return Result{}, err
	}

	g.log.WithFields(logrus.Fields{
		"customers": res.Customers,
		"orders":    res.Orders,
		"items":     res.Items,
	}).Debug("seed generated")
	return res, nil
}

func randomName(r *rand.Rand) string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = byte('A' + r.IntN(26))
	}
	return "User " + string(b)
}

// paid 55%, draft 35%, shipped 10%
func randomStatus(r *rand.Rand) model.Status {
	switch x := r.Float64(); {
	case x < 0.55:
		return model.StatusPaid
	case x < 0.90:
		return model.StatusDraft
	default:
		return model.StatusShipped
	}
}
