package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Envelope is the outbox record written to Kafka.
type Envelope struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Message   Message   `json:"message"`
}

// MessageWriter is the subset of *kafka.Writer the outbox uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxTransport queues messages on a Kafka topic for the mailer to deliver.
type OutboxTransport struct {
	w   MessageWriter
	now func() time.Time
}

// NewKafkaWriter builds a synchronous writer for the outbox topic.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewOutboxTransport(w MessageWriter) *OutboxTransport {
	return &OutboxTransport{w: w, now: time.Now}
}

func (t *OutboxTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	env := Envelope{ID: uuid.NewString(), CreatedAt: t.now().UTC(), Message: msg}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("mail: encode envelope: %w", err)
	}
	err = t.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.ID),
		Value: b,
		Time:  env.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("mail: enqueue %s: %w", env.ID, err)
	}
	return nil
}

func (t *OutboxTransport) Close() error { return t.w.Close() }

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader builds a consumer-group reader for the outbox topic.
func NewKafkaReader(brokers, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        splitBrokers(brokers),
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// DeliveryAttempts bounds how often the consumer tries to deliver one message.
const DeliveryAttempts = 5

// Consumer drains the outbox and hands each message to a delivery transport.
type Consumer struct {
	reader      MessageReader
	deliver     Transport
	backoff     time.Duration
	maxAttempts int
}

func NewConsumer(r MessageReader, deliver Transport) *Consumer {
	return &Consumer{reader: r, deliver: deliver, backoff: time.Second, maxAttempts: DeliveryAttempts}
}

// Run fetches, delivers and commits until ctx is cancelled. Undecodable
// records are committed and dropped. Failed deliveries are retried up to
// maxAttempts times, then logged and committed.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	log.Printf("mailer: consuming outbox")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("mailer: shutting down")
				return nil
			}
			log.Printf("mailer: fetch error: %v", err)
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}

		for attempt := 1; ; attempt++ {
			err := c.handle(ctx, m)
			if err == nil {
				break
			}
			if attempt >= c.maxAttempts {
				log.Printf("mailer: giving up on offset %d after %d attempts: %v", m.Offset, attempt, err)
				break
			}
			log.Printf("mailer: delivery failed (attempt %d/%d), will retry: %v", attempt, c.maxAttempts, err)
			if !sleep(ctx, c.backoff) {
				return nil
			}
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("mailer: commit error: %v", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("mailer: dropping undecodable record at offset %d: %v", m.Offset, err)
		return nil
	}
	if err := env.Message.Validate(); err != nil {
		log.Printf("mailer: dropping %s: %v", env.ID, err)
		return nil
	}
	if err := c.deliver.Send(ctx, env.Message); err != nil {
		return fmt.Errorf("deliver %s: %w", env.ID, err)
	}
	log.Printf("mailer: delivered %s to %s", env.ID, strings.Join(env.Message.To, ", "))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
