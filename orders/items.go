package orders

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/store"
)

func (s *Service) ListItems(ctx context.Context, p store.Page) ([]model.OrderItem, int, error) {
	return s.store.ListItems(ctx, p)
}

func (s *Service) GetItem(ctx context.Context, id int64) (*model.OrderItem, error) {
	return s.store.GetItem(ctx, id)
}

// ItemsOf lists the items of one order; an unknown order is not found.
func (s *Service) ItemsOf(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	ok, err := s.store.OrderExists(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NotFound("order", orderID)
	}
	return s.store.ItemsOf(ctx, orderID)
}

func (s *Service) CreateItem(ctx context.Context, f ItemFields) (_ *model.OrderItem, err error) {
	ctx, span := s.start(ctx, "CreateItem")
	defer func() { finish(span, err) }()

	item := &model.OrderItem{}
	if err := applyItemFields(item, f, false); err != nil {
		return nil, err
	}
	if err := s.requireOrder(ctx, item.OrderID); err != nil {
		return nil, err
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	s.written(ctx, nil)
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, f ItemFields, partial bool) (_ *model.OrderItem, err error) {
	ctx, span := s.start(ctx, "UpdateItem", attribute.Int64("item.id", id), attribute.Bool("partial", partial))
	defer func() { finish(span, err) }()

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyItemFields(item, f, partial); err != nil {
		return nil, err
	}
	if f.Order != nil {
		if err := s.requireOrder(ctx, item.OrderID); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	s.written(ctx, nil)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteItem", attribute.Int64("item.id", id))
	defer func() { finish(span, err) }()

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.written(ctx, nil)
	return nil
}

func applyItemFields(item *model.OrderItem, f ItemFields, partial bool) error {
	if !partial {
		switch {
		case f.Order == nil:
			return model.Invalid("order is required")
		case f.SKU == nil:
			return model.Invalid("sku is required")
		case f.Quantity == nil:
			return model.Invalid("quantity is required")
		case f.UnitPriceCents == nil:
			return model.Invalid("unit_price_cents is required")
		}
	}
	if f.Order != nil {
		item.OrderID = *f.Order
	}
	if f.SKU != nil {
		sku := strings.TrimSpace(*f.SKU)
		if sku == "" || len(sku) > 64 {
			return model.Invalid("sku must be 1 to 64 characters")
		}
		item.SKU = sku
	}
	if f.Quantity != nil {
		if *f.Quantity <= 0 {
			return model.Invalid("quantity must be positive, got %d", *f.Quantity)
		}
		item.Quantity = *f.Quantity
	}
	if f.UnitPriceCents != nil {
		if *f.UnitPriceCents < 0 {
			return model.Invalid("unit_price_cents must not be negative, got %d", *f.UnitPriceCents)
		}
		item.UnitPriceCents = *f.UnitPriceCents
	}
	return nil
}

func (s *Service) requireOrder(ctx context.Context, id int64) error {
	ok, err := s.store.OrderExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.Invalid("order %d does not exist", id)
	}
	return nil
}
