// Package events publishes order-synced notifications to Kafka. Publishing is
// best effort: a broker outage never fails a sync cycle.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/observability/metrics"
)

// Module wires the order event publisher.
var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// OrderSynced is the payload emitted after an order commits.
type OrderSynced struct {
	OrderID        int64     `json:"order_id"`
	RestaurantID   int64     `json:"restaurant_id"`
	RestaurantName string    `json:"restaurant_name"`
	CustomerID     int64     `json:"customer_id"`
	Total          float64   `json:"total"`
	CreationDate   time.Time `json:"creation_date"`
	SyncedAt       time.Time `json:"synced_at"`
}

// Publisher emits OrderSynced events. With no brokers configured it is a
// no-op.
type Publisher struct {
	client *kgo.Client
	topic  string
	log    *zap.Logger
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Logger    *zap.Logger
}

func NewPublisher(p Params) (*Publisher, error) {
	log := p.Logger.Named("events")
	pub := &Publisher{topic: p.Config.Kafka.OrderTopic, log: log}

	if len(p.Config.Kafka.Brokers) == 0 {
		log.Info("no kafka brokers configured, order events disabled")
		return pub, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(p.Config.Kafka.Brokers...),
		kgo.DefaultProduceTopic(p.Config.Kafka.OrderTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("events: create kafka client: %w", err)
	}
	pub.client = client

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})

	log.Info("kafka order events enabled",
		zap.Strings("brokers", p.Config.Kafka.Brokers),
		zap.String("topic", p.Config.Kafka.OrderTopic),
	)
	return pub, nil
}

// Publish emits one event. Failures are counted and logged, never returned:
// the sync pipeline does not depend on the broker being up.
func (p *Publisher) Publish(ctx context.Context, event OrderSynced) {
	if p.client == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal order event", zap.Error(err), zap.Int64("order_id", event.OrderID))
		return
	}

	rec := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(uuid.NewString()),
		Value:     payload,
		Timestamp: time.Now().UTC(),
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		metrics.Sync().IncPublishFailure(event.RestaurantName)
		p.log.Warn("publish order event failed",
			zap.Error(err),
			zap.Int64("order_id", event.OrderID),
			zap.String("topic", p.topic),
		)
	}
}
