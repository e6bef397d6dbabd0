// Package health reports whether the service can reach its database, over
// HTTP (through api) and over the standard gRPC health protocol.
package health

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const probeTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	db      Pinger
	service string
	srv     *grpchealth.Server
}

func NewChecker(db Pinger, service string) *Checker {
	return &Checker{db: db, service: service, srv: grpchealth.NewServer()}
}

// Check pings the database once.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		return errors.Wrap(err, "health: database unreachable")
	}
	return nil
}

// Refresh runs Check and publishes the outcome to gRPC health clients.
func (c *Checker) Refresh(ctx context.Context) error {
	err := c.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.srv.SetServingStatus("", status)
	c.srv.SetServingStatus(c.service, status)
	return err
}

// Serve exposes the gRPC health service on addr, refreshing the status
// every interval, until ctx is cancelled.
func (c *Checker) Serve(ctx context.Context, addr string, interval time.Duration, log logrus.FieldLogger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "health: listen on %s", addr)
	}

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, c.srv)

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			if err := c.Refresh(ctx); err != nil {
				log.WithError(err).Warn("health probe failed")
			}
			select {
			case <-ctx.Done():
				c.srv.Shutdown()
				gs.GracefulStop()
				return
			case <-t.C:
			}
		}
	}()

	log.WithField("addr", addr).Info("grpc health server listening")
	if err := gs.Serve(lis); err != nil {
		return errors.Wrap(err, "health: serve")
	}
	return nil
}
