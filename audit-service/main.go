package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/jeffsasaki/regression-lab/clients"
	"github.com/jeffsasaki/regression-lab/config"
	"github.com/jeffsasaki/regression-lab/logging"
	"github.com/jeffsasaki/regression-lab/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("build logger")
	}
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required")
	}

	client, err := clients.Dial(cfg.AMQPURL)
	if err != nil {
		log.WithError(err).Fatal("connect to RabbitMQ")
	}
	defer client.Close()

	if err := consume(client, cfg.EventsQueue, log); err != nil {
		log.WithError(err).Fatal("start consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.WithField("queue", cfg.EventsQueue).Info("waiting for order events")
	<-ctx.Done()
}

func consume(client clients.AmqpClient, queue string, log logrus.FieldLogger) error {
	if err := client.DeclareQueue(queue); err != nil {
		return err
	}
	return client.SetupConsumer(queue, handleEvent(log))
}

// handleEvent logs each order event and acks it. A message that is not an
// event is rejected without requeue so it cannot loop.
func handleEvent(log logrus.FieldLogger) func(amqp.Delivery) {
	return func(d amqp.Delivery) {
		var ev models.Event
		if err := json.Unmarshal(d.Body, &ev); err != nil || ev.Type == "" {
			log.WithError(err).WithField("body", string(d.Body)).Warn("rejecting undecodable message")
			if err := d.Reject(false); err != nil {
				log.WithError(err).Error("reject message")
			}
			return
		}

		fields := logrus.Fields{
			"event_id":    ev.ID,
			"event":       ev.Type,
			"occurred_at": ev.OccurredAt,
		}
		if ev.OrderID != 0 {
			fields["order_id"] = ev.OrderID
			fields["customer_id"] = ev.CustomerID
		}
		if ev.Status != "" {
			fields["status"] = ev.Status
		}
		if ev.IsArchived != nil {
			fields["is_archived"] = *ev.IsArchived
		}
		if ev.Seed != nil {
			fields["batch_id"] = ev.Seed.BatchID
			fields["customers"] = ev.Seed.Customers
			fields["orders"] = ev.Seed.Orders
			fields["items"] = ev.Seed.Items
		}
		log.WithFields(fields).Info("order event")

		if err := d.Ack(false); err != nil {
			log.WithError(err).Error("ack message")
		}
	}
}
