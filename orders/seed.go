package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jeffsasaki/regression-lab/model"
	"github.com/jeffsasaki/regression-lab/models"
	"github.com/jeffsasaki/regression-lab/seed"
	"github.com/jeffsasaki/regression-lab/store"
)

// Seed generates a dataset inside one transaction. Either every row of the
// batch is committed or none is; a failed batch reports ErrIntegrity and
// no counts.
func (s *Service) Seed(ctx context.Context, p seed.Params) (_ seed.Result, err error) {
	ctx, span := s.start(ctx, "Seed",
		attribute.Int("seed.customers", p.Customers),
		attribute.Int("seed.orders_per_customer", p.OrdersPerCustomer),
		attribute.Int("seed.items_per_order", p.ItemsPerOrder))
	defer func() { finish(span, err) }()

	if err := p.Validate(); err != nil {
		return seed.Result{}, err
	}

	batch := uuid.NewString()
	var res seed.Result
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = s.gen.Run(ctx, tx, p)
		return err
	})
	if err != nil {
		s.log.WithError(err).WithField("batch_id", batch).Error("seed batch rolled back")
		return seed.Result{}, errors.Wrap(model.ErrIntegrity, "seed batch rolled back")
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":  batch,
		"customers": res.Customers,
		"orders":    res.Orders,
		"items":     res.Items,
	}).Info("seed batch committed")
	s.written(ctx, &models.Event{
		Type: models.EventSeedCompleted,
		Seed: &models.SeedCounts{
			BatchID:   batch,
			Customers: res.Customers,
			Orders:    res.Orders,
			Items:     res.Items,
		},
	})
	return res, nil
}
