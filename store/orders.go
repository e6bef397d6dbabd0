package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeffsasaki/regression-lab/model"
)

const orderColumns = "o.id AS id, o.customer_id AS customer_id, o.status AS status, o.total_cents AS total_cents, " +
	"o.is_archived AS is_archived, o.created_at AS created_at, o.updated_at AS updated_at"

// OrderFilter narrows an order listing. Nil fields are not applied; the
// applied ones are ANDed. Archived orders are never listed.
type OrderFilter struct {
	Status *model.Status
	Email  *string
}

func (f OrderFilter) where() (string, []interface{}) {
	clauses := []string{"o.is_archived = ?"}
	args := []interface{}{false}
	join := ""

	if f.Status != nil {
		clauses = append(clauses, "o.status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Email != nil {
		join = " JOIN customers c ON c.id = o.customer_id"
		clauses = append(clauses, "LOWER(c.email) LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(*f.Email))
	}
	return join + " WHERE " + strings.Join(clauses, " AND "), args
}

// containsPattern builds a case-insensitive substring LIKE pattern; the
// wildcard characters of the needle itself are escaped with '!'.
func containsPattern(needle string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(needle)) + "%"
}

func (q *Queries) ListOrders(ctx context.Context, f OrderFilter, p Page) ([]model.Order, int, error) {
	where, args := f.where()

	var total int
	if err := q.get(ctx, &total, `SELECT COUNT(*) FROM orders o`+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "store: count orders")
	}

	orders := []model.Order{}
	err := q.selectAll(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders o`+where+` ORDER BY o.id DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "store: list orders")
	}
	return orders, total, nil
}

// GetOrder looks an order up by id whether or not it is archived.
func (q *Queries) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := q.get(ctx, &o, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("order", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: get order %d", id)
	}
	return &o, nil
}

func (q *Queries) OrderExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM orders WHERE id = ?`, id); err != nil {
		return false, errors.Wrapf(err, "store: check order %d", id)
	}
	return n > 0, nil
}

func (q *Queries) CreateOrder(ctx context.Context, o *model.Order) error {
	id, err := q.insert(ctx,
		`INSERT INTO orders (customer_id, status, total_cents, is_archived, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.CustomerID, string(o.Status), nullInt64(o.TotalCents), o.IsArchived, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "store: insert order")
	}
	o.ID = id
	return nil
}

// UpdateOrder writes every mutable column of the order. The owning
// customer is never rewritten.
func (q *Queries) UpdateOrder(ctx context.Context, o *model.Order) error {
	return q.UpdateOrderFields(ctx, o, "status", "total_cents", "is_archived")
}

// UpdateOrderFields writes only the named columns plus updated_at, scoped
// to the single row o.ID.
func (q *Queries) UpdateOrderFields(ctx context.Context, o *model.Order, fields ...string) error {
	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, field := range fields {
		var value interface{}
		switch field {
		case "status":
			value = string(o.Status)
		case "total_cents":
			value = nullInt64(o.TotalCents)
		case "is_archived":
			value = o.IsArchived
		case "updated_at":
			continue
		default:
			return errors.Errorf("store: unknown order field %q", field)
		}
		sets = append(sets, field+" = ?")
		args = append(args, value)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, o.UpdatedAt, o.ID)

	res, err := q.exec(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return errors.Wrapf(err, "store: update order %d", o.ID)
	}
	return mustAffect(res, "order", o.ID)
}

func (q *Queries) DeleteOrder(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "store: delete order %d", id)
	}
	return mustAffect(res, "order", id)
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
