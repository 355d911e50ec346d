package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"nameledger/internal/treasury/models"
)

// DefaultTopic receives transfer instructions when none is configured.
const DefaultTopic = "nameledger.settlement.transfers"

// KafkaSettler produces each instruction to a topic keyed by instruction ID
// and waits for the broker acknowledgement.
type KafkaSettler struct {
	client *kgo.Client
	topic  string
}

// NewKafkaClient builds an idempotent producer that waits for all in-sync
// replicas, so an acknowledged instruction survives a broker failover.
func NewKafkaClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.NoCompression()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

func NewKafkaSettler(client *kgo.Client, topic string) *KafkaSettler {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSettler{client: client, topic: topic}
}

func (k *KafkaSettler) Settle(ctx context.Context, instruction *models.TransferInstruction) error {
	value, err := NewMessage(instruction).Encode()
	if err != nil {
		return fmt.Errorf("encode transfer instruction: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(instruction.ID.String()),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce transfer instruction %s: %w", instruction.ID, err)
	}
	return nil
}

// Health pings the seed brokers.
func (k *KafkaSettler) Health(ctx context.Context) error {
	return k.client.Ping(ctx)
}

// EnsureTopic creates topic if it does not exist. An existing topic is left
// as is.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16, logger *slog.Logger) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil {
		if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "created settlement topic", "topic", topic, "partitions", partitions)
	}
	return nil
}
