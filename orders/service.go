// Package orders holds the business operations behind the HTTP API:
// listing and aggregation, the cancel/archive actions, generic CRUD over
// customers, orders and items, and dataset seeding.
//
// Every successful write bumps the summary cache generation and, for the
// lifecycle actions and seeding, publishes an event after the write has
// been committed. Both side effects are best effort: their failures are
// logged and never change the outcome of the request.
package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeffsasaki/regression-lab/clients"
	"github.com/jeffsasaki/regression-lab/models"
	"github.com/jeffsasaki/regression-lab/seed"
	"github.com/jeffsasaki/regression-lab/store"
	"github.com/jeffsasaki/regression-lab/telemetry"
)

const tracerName = "github.com/jeffsasaki/regression-lab/orders"

type Service struct {
	store    *store.Store
	gen      *seed.Generator
	cache    clients.Cache
	cacheTTL time.Duration
	events   clients.AmqpClient
	queue    string
	log      logrus.FieldLogger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Service)

// WithCache enables the summary cache. A nil cache or a zero ttl leaves it off.
func WithCache(c clients.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil && ttl > 0 {
			s.cache, s.cacheTTL = c, ttl
		}
	}
}

func WithEvents(c clients.AmqpClient, queue string) Option {
	return func(s *Service) { s.events, s.queue = c, queue }
}

func WithGenerator(g *seed.Generator) Option {
	return func(s *Service) { s.gen = g }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		events: clients.NoopAmqpClient{},
		queue:  "order_events",
		log:    logrus.StandardLogger(),
		tracer: telemetry.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		s.gen = seed.New(seed.WithLogger(s.log))
	}
	return s
}

// Ping reports whether the database answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "orders."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// written runs the post-commit side effects of a successful write.
func (s *Service) written(ctx context.Context, ev *models.Event) {
	s.invalidateSummary(ctx)
	if ev == nil {
		return
	}

	ev.ID = uuid.NewString()
	ev.OccurredAt = s.timestamp()
	body, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Error("encode event")
		return
	}
	if err := s.events.Publish(ctx, body, s.queue); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":    ev.Type,
			"event_id": ev.ID,
			"queue":    s.queue,
		}).Error("publish event")
	}
}
