package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"cameio-cli/src/logger"
)

const clientID = "cameio-cli"

// RedpandaBroker publishes build events to a Kafka-compatible cluster and
// tails them for followers.
type RedpandaBroker struct {
	producer *kgo.Client
	seeds    []string
	log      logger.Logger

	mu        sync.Mutex
	followers []*kgo.Client
	closed    bool
}

// NewRedpandaBroker creates the producer client. No connection is made
// until the first publish.
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, errors.New("no event brokers configured")
	}
	producer, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	return &RedpandaBroker{producer: producer, seeds: seeds, log: log}, nil
}

// Publish produces one record keyed for partitioning and waits for the ack.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe tails topic from its current end. An empty groupID consumes
// every partition directly, so each follower sees every record; otherwise
// the partitions are shared by the group members.
// The channel is closed when ctx is done or the broker is closed.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if groupID != "" {
		opts = append(opts, kgo.ConsumerGroup(groupID))
	}
	follower, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to follow %s: %w", topic, err)
	}
	b.followers = append(b.followers, follower)

	out := make(chan Message, 64)
	go pump(ctx, follower, out, b.log)
	return out, nil
}

// Close stops every follower and the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for _, f := range b.followers {
		f.Close()
	}
	b.followers = nil
	b.producer.Close()
	return nil
}

// fetchPoller is the part of *kgo.Client pump reads from.
type fetchPoller interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// pump forwards fetched records to out until ctx is done or the client is
// closed, then closes out. Partition errors are logged and polling goes on.
func pump(ctx context.Context, src fetchPoller, out chan<- Message, log logger.Logger) {
	defer close(out)
	for ctx.Err() == nil {
		fetches := src.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				log.Error("Fetch from %s/%d failed: %v", topic, partition, err)
			}
		})
		for iter := fetches.RecordIter(); !iter.Done(); {
			msg := recordMessage(iter.Next())
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func recordMessage(r *kgo.Record) Message {
	return Message{
		Topic:     r.Topic,
		Key:       string(r.Key),
		Value:     r.Value,
		Offset:    r.Offset,
		Partition: r.Partition,
		Timestamp: r.Timestamp.UnixMilli(),
	}
}
