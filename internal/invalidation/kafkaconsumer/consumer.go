// Package kafkaconsumer applies source invalidation events from Kafka to the
// running source stores.
package kafkaconsumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	obs "github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
	"github.com/mohammed-shakir/geojson-featureserver/internal/invalidation"
	mylog "github.com/mohammed-shakir/geojson-featureserver/internal/logger"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
)

// Remover deletes a stored source document. Only the redis store has one.
type Remover interface {
	Delete(ctx context.Context, id string) error
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	evict  source.Evicter
	remove Remover
	seqs   *seqDedupe
	zlog   *zerolog.Logger

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
}

// New builds a consumer; remove may be nil when deletes only need eviction.
func New(cfg Config, logger *slog.Logger, evict source.Evicter, remove Remover) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	zl := mylog.Build(mylog.Config{Level: "info", Component: "kafka_consumer"}, nil)
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		evict:  evict,
		remove: remove,
		seqs:   newSeqDedupe(cfg.DedupeSize),
		zlog:   &zl,
		assign: map[int32]struct{}{},
	}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.evict == nil {
		return errors.New("kafkaconsumer: missing evicter")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := c.handler()

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil && ctx.Err() == nil {
			obs.IncKafkaError("consume")
			c.zlog.Error().Err(err).
				Strs("brokers", c.cfg.Brokers).
				Str("topic", c.cfg.Topic).
				Msg("kafka consumer error")
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		}
	}
}

func (c *Consumer) handler() *groupHandler {
	return &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			defer c.assignMu.Unlock()
			c.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					c.assign[p] = struct{}{}
				}
			}
			c.assigned.Store(true)
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			defer c.assignMu.Unlock()
			c.assigned.Store(false)
			c.assign = map[int32]struct{}{}
		},
		process: c.ProcessOne,
	}
}

// Partitions lists the partitions of the current session; ok is false
// outside a session.
func (c *Consumer) Partitions() (parts []int32, ok bool) {
	if !c.assigned.Load() {
		return nil, false
	}
	c.assignMu.RLock()
	defer c.assignMu.RUnlock()
	for p := range c.assign {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	return parts, true
}

// Ready is a readiness probe: the consumer must hold a group session.
func (c *Consumer) Ready(context.Context) error {
	if _, ok := c.Partitions(); !ok {
		return errors.New("no consumer group session")
	}
	return nil
}

// ProcessOne applies a single message. Undecodable events are logged and
// skipped; a failed eviction or delete is returned so the message is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ev, err := invalidation.Decode(msg.Value)
	if err != nil {
		obs.IncKafkaError("decode")
		mylog.FromContext(ctx, c.zlog).Error().Err(err).
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return nil
	}

	if !c.seqs.shouldApply(ev.Source, ev.Seq) {
		obs.ObserveInvalidation(ev.Op+"_stale", nil)
		c.logger.Debug("stale invalidation skipped", "source", ev.Source, "seq", ev.Seq)
		return nil
	}

	if err := c.apply(ctx, ev); err != nil {
		c.seqs.forget(ev.Source, ev.Seq)
		obs.ObserveInvalidation(ev.Op, err)
		return err
	}
	obs.ObserveInvalidation(ev.Op, nil)

	mylog.FromContext(mylog.WithSource(ctx, ev.Source), c.zlog).Info().
		Str("event", "invalidation").
		Str("op", ev.Op).
		Uint64("seq", ev.Seq).
		Msg("source invalidated")
	return nil
}

func (c *Consumer) apply(ctx context.Context, ev invalidation.Event) error {
	if ev.Op == invalidation.OpDelete && c.remove != nil {
		if err := c.remove.Delete(ctx, ev.Source); err != nil {
			obs.IncKafkaError("delete")
			return fmt.Errorf("delete source %q: %w", ev.Source, err)
		}
	}
	if err := c.evict.Evict(ctx, ev.Source); err != nil {
		obs.IncKafkaError("evict")
		return fmt.Errorf("evict source %q: %w", ev.Source, err)
	}
	return nil
}
