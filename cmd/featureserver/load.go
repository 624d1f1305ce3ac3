package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/config"
	"github.com/mohammed-shakir/geojson-featureserver/internal/invalidation"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/cache"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/redisstore"
)

func newLoadCmd(envFiles *[]string) *cobra.Command {
	var (
		del     bool
		publish bool
		seq     uint64
	)
	cmd := &cobra.Command{
		Use:   "load ID [FILE]",
		Short: "Store a GeoJSON source in Redis, or delete it with --delete",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !del && len(args) != 2 {
				return errors.New("load needs ID and FILE")
			}
			cfg, err := loadConfig(*envFiles, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			op := invalidation.OpUpsert
			if del {
				op = invalidation.OpDelete
			}
			if err := storeSource(ctx, cfg, args, del); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", op, args[0])

			if !publish {
				return nil
			}
			ev := invalidation.Event{Version: 1, Op: op, Source: args[0], TS: time.Now().UTC(), Seq: seq}
			return publishEvent(cfg.Invalidation, ev)
		},
	}
	cmd.Flags().BoolVar(&del, "delete", false, "delete the source instead of storing it")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish an invalidation event to KAFKA_TOPIC afterwards")
	cmd.Flags().Uint64Var(&seq, "seq", 0, "event sequence number, 0 for unordered")
	return cmd
}

func storeSource(ctx context.Context, cfg config.Config, args []string, del bool) error {
	client, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = client.Close() }()

	dc, err := cache.New(1)
	if err != nil {
		return fmt.Errorf("source cache: %w", err)
	}
	st, err := redisstore.NewStore(client, dc, cfg.RedisOpTimeout, newLogger(cfg, "load"))
	if err != nil {
		return fmt.Errorf("redis store: %w", err)
	}

	if del {
		return st.Delete(ctx, args[0])
	}
	doc, err := os.ReadFile(filepath.Clean(args[1]))
	if err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}
	return st.Put(ctx, args[0], doc)
}

func publishEvent(cfg config.InvalidationCfg, ev invalidation.Event) error {
	p, err := invalidation.NewPublisher(cfg.BrokerList(), cfg.Topic)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()
	return p.Publish(ev)
}
