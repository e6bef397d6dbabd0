package orders

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/store"
)

func (s *Service) ListCustomers(ctx context.Context, p store.Page) ([]model.Customer, int, error) {
	return s.store.ListCustomers(ctx, p)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, f CustomerFields) (_ *model.Customer, err error) {
	ctx, span := s.start(ctx, "CreateCustomer")
	defer func() { finish(span, err) }()

	c := &model.Customer{IsActive: true, CreatedAt: s.timestamp()}
	if err := applyCustomerFields(c, f, false); err != nil {
		return nil, err
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	s.written(ctx, nil)
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, f CustomerFields, partial bool) (_ *model.Customer, err error) {
	ctx, span := s.start(ctx, "UpdateCustomer", attribute.Int64("customer.id", id), attribute.Bool("partial", partial))
	defer func() { finish(span, err) }()

	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyCustomerFields(c, f, partial); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	s.written(ctx, nil)
	return c, nil
}

// DeleteCustomer removes the customer together with its orders and items.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteCustomer", attribute.Int64("customer.id", id))
	defer func() { finish(span, err) }()

	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.written(ctx, nil)
	return nil
}

func applyCustomerFields(c *model.Customer, f CustomerFields, partial bool) error {
	if !partial {
		if f.Name == nil {
			return model.Invalid("name is required")
		}
		if f.Email == nil {
			return model.Invalid("email is required")
		}
	}
	if f.Name != nil {
		name := strings.TrimSpace(*f.Name)
		if name == "" || len(name) > 120 {
			return model.Invalid("name must be 1 to 120 characters")
		}
		c.Name = name
	}
	if f.Email != nil {
		email := strings.TrimSpace(*f.Email)
		if email == "" || !strings.Contains(email, "@") {
			return model.Invalid("%q is not a valid email address", *f.Email)
		}
		c.Email = email
	}
	if f.IsActive != nil {
		c.IsActive = *f.IsActive
	}
	return nil
}
