package orders

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/models"
	"github.com/jeffsasaki/regression-lab/store"
)

// ListOrders returns one page of non-archived orders, newest first, and the
// number of matching orders. A status outside the known set matches nothing.
func (s *Service) ListOrders(ctx context.Context, f ListFilter, p store.Page) (_ []model.Order, _ int, err error) {
	ctx, span := s.start(ctx, "ListOrders", attribute.Int("limit", p.Limit), attribute.Int("offset", p.Offset))
	defer func() { finish(span, err) }()

	var sf store.OrderFilter
	if f.Status != nil && strings.TrimSpace(*f.Status) != "" {
		st, _ := model.ParseStatus(*f.Status)
		sf.Status = &st
	}
	if f.Email != nil && strings.TrimSpace(*f.Email) != "" {
		email := strings.TrimSpace(*f.Email)
		sf.Email = &email
	}
	return s.store.ListOrders(ctx, sf, p)
}

// GetOrder returns the order whether or not it is archived.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) CreateOrder(ctx context.Context, f OrderFields) (_ *model.Order, err error) {
	ctx, span := s.start(ctx, "CreateOrder")
	defer func() { finish(span, err) }()

	if f.Customer == nil {
		return nil, model.Invalid("customer is required")
	}
	if err := s.requireCustomer(ctx, *f.Customer); err != nil {
		return nil, err
	}

	now := s.timestamp()
	o := &model.Order{
		CustomerID: *f.Customer,
		Status:     model.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := applyOrderFields(o, f); err != nil {
		return nil, err
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.written(ctx, nil)
	return o, nil
}

// UpdateOrder applies f to the order. A full update (partial false) must
// name the customer; no update may move the order to another customer.
func (s *Service) UpdateOrder(ctx context.Context, id int64, f OrderFields, partial bool) (_ *model.Order, err error) {
	ctx, span := s.start(ctx, "UpdateOrder", attribute.Int64("order.id", id), attribute.Bool("partial", partial))
	defer func() { finish(span, err) }()

	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Customer == nil && !partial {
		return nil, model.Invalid("customer is required")
	}
	if f.Customer != nil && *f.Customer != o.CustomerID {
		return nil, model.Invalid("customer of order %d cannot change", id)
	}
	if err := applyOrderFields(o, f); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.timestamp()
	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.written(ctx, nil)
	return o, nil
}

func applyOrderFields(o *model.Order, f OrderFields) error {
	if f.Status != nil {
		st, ok := model.ParseStatus(*f.Status)
		if !ok {
			return model.Invalid("%q is not a valid status", *f.Status)
		}
		o.Status = st
	}
	if f.TotalCents.Set {
		o.TotalCents = f.TotalCents.Value
	}
	if f.IsArchived != nil {
		o.IsArchived = *f.IsArchived
	}
	return nil
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteOrder", attribute.Int64("order.id", id))
	defer func() { finish(span, err) }()

	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.written(ctx, nil)
	return nil
}

// Cancel moves one order to cancelled. Only that order's status and
// updated_at are written; the customer and sibling orders are untouched.
func (s *Service) Cancel(ctx context.Context, id int64) (_ *model.Order, err error) {
	ctx, span := s.start(ctx, "Cancel", attribute.Int64("order.id", id))
	defer func() { finish(span, err) }()

	o, err := s.updateOrder(ctx, id, "status", func(o *model.Order) {
		o.Status = model.StatusCancelled
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("order_id", id).Info("order cancelled")
	s.written(ctx, &models.Event{
		Type:       models.EventOrderCancelled,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     string(o.Status),
	})
	return o, nil
}

// Archive hides one order from listings and the summary. Only is_archived
// and updated_at are written.
func (s *Service) Archive(ctx context.Context, id int64) (_ *model.Order, err error) {
	ctx, span := s.start(ctx, "Archive", attribute.Int64("order.id", id))
	defer func() { finish(span, err) }()

	o, err := s.updateOrder(ctx, id, "is_archived", func(o *model.Order) {
		o.IsArchived = true
	})
	if err != nil {
		return nil, err
	}

	archived := true
	s.log.WithField("order_id", id).Info("order archived")
	s.written(ctx, &models.Event{
		Type:       models.EventOrderArchived,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		IsArchived: &archived,
	})
	return o, nil
}

// updateOrder loads the order and writes back the one field set applies,
// both inside a single transaction.
func (s *Service) updateOrder(ctx context.Context, id int64, field string, set func(*model.Order)) (*model.Order, error) {
	var o *model.Order
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if o, err = tx.GetOrder(ctx, id); err != nil {
			return err
		}
		set(o)
		o.UpdatedAt = s.timestamp()
		return tx.UpdateOrderFields(ctx, o, field)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) requireCustomer(ctx context.Context, id int64) error {
	ok, err := s.store.CustomerExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.Invalid("customer %d does not exist", id)
	}
	return nil
}
