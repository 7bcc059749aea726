package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChangeFeed broadcasts collection-change signals over Redis pub/sub.
// Watchers requery the repository on every signal, so the payload carries
// no data; the signal itself is the message.
type ChangeFeed struct {
	client *redis.Client
}

// NewChangeFeed initializes a new Redis-backed change feed
func NewChangeFeed(addr, password string, db int) (*ChangeFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &ChangeFeed{client: client}, nil
}

// Close closes the Redis connection
func (cf *ChangeFeed) Close() error {
	return cf.client.Close()
}

func changeChannel(collection string) string {
	return "changes:" + collection
}

// Publish signals that the named collection changed.
func (cf *ChangeFeed) Publish(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "redis.publish_change",
		trace.WithAttributes(
			attribute.String("collection", collection),
		),
	)
	defer span.End()

	if err := cf.client.Publish(ctx, changeChannel(collection), "1").Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe delivers a signal each time the named collection changes, until
// cancel is called. Signals are coalesced: a slow consumer sees at least one
// signal for any burst of changes. cancel is safe to call more than once.
func (cf *ChangeFeed) Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	sub := cf.client.Subscribe(ctx, changeChannel(collection))

	// Confirm the subscription before handing out the channel
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	signals := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(signals)
		messages := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			sub.Close()
		})
	}

	return signals, cancel, nil
}
