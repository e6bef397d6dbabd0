package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jeffsasaki/regression-lab/model"
)

const itemColumns = "id, order_id, sku, quantity, unit_price_cents"

// ItemBatchSize caps the rows of one multi-row INSERT issued by CreateItems.
const ItemBatchSize = 500

const insertItemsNamed = `INSERT INTO order_items (order_id, sku, quantity, unit_price_cents) VALUES (:order_id, :sku, :quantity, :unit_price_cents)`

// CreateItems writes items with multi-row inserts, one statement per
// ItemBatchSize rows. Ids are not read back.
func (q *Queries) CreateItems(ctx context.Context, items []model.OrderItem) error {
	for start := 0; start < len(items); start += ItemBatchSize {
		end := start + ItemBatchSize
		if end > len(items) {
			end = len(items)
		}
		q.observe(insertItemsNamed)
		if _, err := sqlx.NamedExecContext(ctx, q.ext, insertItemsNamed, items[start:end]); err != nil {
			return errors.Wrapf(err, "store: insert %d order items", end-start)
		}
	}
	return nil
}

func (q *Queries) CreateItem(ctx context.Context, item *model.OrderItem) error {
	id, err := q.insert(ctx,
		`INSERT INTO order_items (order_id, sku, quantity, unit_price_cents) VALUES (?, ?, ?, ?)`,
		item.OrderID, item.SKU, item.Quantity, item.UnitPriceCents)
	if err != nil {
		return errors.Wrap(err, "store: insert order item")
	}
	item.ID = id
	return nil
}

func (q *Queries) GetItem(ctx context.Context, id int64) (*model.OrderItem, error) {
	var item model.OrderItem
	err := q.get(ctx, &item, `SELECT `+itemColumns+` FROM order_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("order item", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: get order item %d", id)
	}
	return &item, nil
}

func (q *Queries) ListItems(ctx context.Context, p Page) ([]model.OrderItem, int, error) {
	var total int
	if err := q.get(ctx, &total, `SELECT COUNT(*) FROM order_items`); err != nil {
		return nil, 0, errors.Wrap(err, "store: count order items")
	}

	items := []model.OrderItem{}
	err := q.selectAll(ctx, &items,
		`SELECT `+itemColumns+` FROM order_items ORDER BY id DESC LIMIT ? OFFSET ?`,
		p.Limit, p.Offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "store: list order items")
	}
	return items, total, nil
}

// ItemsOf returns the items of one order in insertion order.
func (q *Queries) ItemsOf(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	items := []model.OrderItem{}
	err := q.selectAll(ctx, &items,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "store: items of order %d", orderID)
	}
	return items, nil
}

func (q *Queries) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	res, err := q.exec(ctx,
		`UPDATE order_items SET order_id = ?, sku = ?, quantity = ?, unit_price_cents = ? WHERE id = ?`,
		item.OrderID, item.SKU, item.Quantity, item.UnitPriceCents, item.ID)
	if err != nil {
		return errors.Wrapf(err, "store: update order item %d", item.ID)
	}
	return mustAffect(res, "order item", item.ID)
}

func (q *Queries) DeleteItem(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `DELETE FROM order_items WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "store: delete order item %d", id)
	}
	return mustAffect(res, "order item", id)
}
