package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jeffsasaki/regression-lab/model"
)

// topSpendersQuery ranks active customers by the value of their paid,
// non-archived orders in a single statement. Customers without such orders
// still get a row: the LEFT JOIN keeps them and COALESCE turns their NULL
// sum into 0 before sorting, so zero spenders always rank below positive
// spenders whatever the engine's NULL ordering is. Ties break on the
// customer id.
const topSpendersQuery = `
SELECT c.id AS customer_id,
       c.email AS email,
       COUNT(o.id) AS order_count,
       COALESCE(SUM(o.total_cents), 0) AS total_spent
FROM customers c
LEFT JOIN orders o
       ON o.customer_id = c.id
      AND o.status = ?
      AND o.is_archived = ?
WHERE c.is_active = ?
GROUP BY c.id, c.email
ORDER BY total_spent DESC, c.id ASC
LIMIT ?`

func (q *Queries) TopSpenders(ctx context.Context, limit int) ([]model.SpenderRow, error) {
	rows := []model.SpenderRow{}
	err := q.selectAll(ctx, &rows, topSpendersQuery, string(model.StatusPaid), false, true, limit)
	if err != nil {
		return nil, errors.Wrap(err, "store: top spenders")
	}
	return rows, nil
}
