package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// ReadinessWaiter blocks startup until backing services answer. It polls
// without a deadline so a slow dev stack delays startup instead of crashing it.
type ReadinessWaiter struct {
	checks   []namedCheck
	interval time.Duration
}

type namedCheck struct {
	name  string
	check Check
}

func NewReadinessWaiter(interval time.Duration) *ReadinessWaiter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ReadinessWaiter{interval: interval}
}

// Add registers a dependency. Checks run in registration order.
func (w *ReadinessWaiter) Add(name string, check Check) *ReadinessWaiter {
	w.checks = append(w.checks, namedCheck{name: name, check: check})
	return w
}

func (w *ReadinessWaiter) WaitForDependencies(ctx context.Context) error {
	for _, c := range w.checks {
		if err := w.waitFor(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReadinessWaiter) waitFor(ctx context.Context, c namedCheck) error {
	slog.Info("Waiting for dependency", "dependency", c.name)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				slog.Warn("Dependency not ready yet", "dependency", c.name, "error", err)
				continue
			}
			slog.Info("Dependency is ready", "dependency", c.name)
			return nil
		}
	}
}

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

// KafkaCheck dials every broker and verifies that each topic has partitions.
func KafkaCheck(brokers []string, topics ...string) Check {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return fmt.Errorf("no brokers configured")
		}
		var d net.Dialer
		for _, broker := range brokers {
			dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			conn, err := d.DialContext(dctx, "tcp", broker)
			cancel()
			if err != nil {
				return fmt.Errorf("failed to connect to broker %s: %w", broker, err)
			}
			_ = conn.Close()
		}

		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return fmt.Errorf("failed to dial kafka: %w", err)
		}
		defer func() {
			_ = conn.Close()
		}()

		for _, topic := range topics {
			partitions, err := conn.ReadPartitions(topic)
			if err != nil {
				return fmt.Errorf("failed to read partitions for topic %s: %w", topic, err)
			}
			if len(partitions) == 0 {
				return fmt.Errorf("topic %s has no partitions", topic)
			}
		}
		return nil
	}
}
