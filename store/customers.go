package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jeffsasaki/regression-lab/model"
)

const customerColumns = "id, name, email, is_active, created_at"

func (q *Queries) CreateCustomer(ctx context.Context, c *model.Customer) error {
	id, err := q.insert(ctx,
		`INSERT INTO customers (name, email, is_active, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Email, c.IsActive, c.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "store: insert customer")
	}
	c.ID = id
	return nil
}

// SetCustomerEmail writes an email derived from the storage-assigned id.
func (q *Queries) SetCustomerEmail(ctx context.Context, id int64, email string) error {
	res, err := q.exec(ctx, `UPDATE customers SET email = ? WHERE id = ?`, email, id)
	if err != nil {
		return errors.Wrapf(err, "store: set email of customer %d", id)
	}
	return mustAffect(res, "customer", id)
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := q.get(ctx, &c, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("customer", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: get customer %d", id)
	}
	return &c, nil
}

func (q *Queries) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM customers WHERE id = ?`, id); err != nil {
		return false, errors.Wrapf(err, "store: check customer %d", id)
	}
	return n > 0, nil
}

func (q *Queries) ListCustomers(ctx context.Context, p Page) ([]model.Customer, int, error) {
	var total int
	if err := q.get(ctx, &total, `SELECT COUNT(*) FROM customers`); err != nil {
		return nil, 0, errors.Wrap(err, "store: count customers")
	}

	customers := []model.Customer{}
	err := q.selectAll(ctx, &customers,
		`SELECT `+customerColumns+` FROM customers ORDER BY id DESC LIMIT ? OFFSET ?`,
		p.Limit, p.Offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "store: list customers")
	}
	return customers, total, nil
}

func (q *Queries) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	res, err := q.exec(ctx,
		`UPDATE customers SET name = ?, email = ?, is_active = ? WHERE id = ?`,
		c.Name, c.Email, c.IsActive, c.ID)
	if err != nil {
		return errors.Wrapf(err, "store: update customer %d", c.ID)
	}
	return mustAffect(res, "customer", c.ID)
}

// DeleteCustomer removes the customer; its orders and items go with it
// through ON DELETE CASCADE.
func (q *Queries) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "store: delete customer %d", id)
	}
	return mustAffect(res, "customer", id)
}
