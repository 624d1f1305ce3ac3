package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	// DedupeSize bounds the number of sources whose last seq is remembered.
	DedupeSize int
}

func FromConfig(c config.InvalidationCfg) Config {
	return Config{
		Brokers:          c.BrokerList(),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		DedupeSize:       4096,
	}
}
