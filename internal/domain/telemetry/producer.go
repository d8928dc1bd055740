package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/config"
	"golang.org/x/sync/singleflight"
)

// Producer publishes telemetry events to the event stream
type Producer interface {
	Publish(ctx context.Context, event Event) error
}

// streamConn is the subset of *kafka.Conn the producer uses
type streamConn interface {
	WriteMessages(msgs ...kafka.Message) (int, error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// KafkaProducer maintains a single lazily-established connection to the
// event stream. The first publish dials the broker; concurrent first
// publishes join the same in-flight dial instead of opening competing
// connections. A failed dial or write leaves the producer disconnected so
// the next publish retries from scratch.
type KafkaProducer struct {
	topic        string
	writeTimeout time.Duration
	log          *logrus.Logger

	dial    func(ctx context.Context) (streamConn, error)
	connect singleflight.Group

	mu   sync.Mutex
	conn streamConn
}

// NewKafkaProducer creates a producer for the configured broker and topic.
// No connection is opened until the first publish.
func NewKafkaProducer(cfg *config.Config, log *logrus.Logger) *KafkaProducer {
	broker := cfg.Kafka.Broker
	topic := cfg.Kafka.Topic
	dialTimeout := cfg.Kafka.DialTimeout

	return &KafkaProducer{
		topic:        topic,
		writeTimeout: cfg.Kafka.WriteTimeout,
		log:          log,
		dial: func(ctx context.Context) (streamConn, error) {
			ctx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()
			return kafka.DialLeader(ctx, "tcp", broker, topic, 0)
		},
	}
}

// Publish sends one event as a single JSON message on the producer's topic
func (p *KafkaProducer) Publish(ctx context.Context, event Event) error {
	conn, err := p.ensureConnected(ctx)
	if err != nil {
		return fmt.Errorf("event stream unavailable: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
			p.dropConn(conn)
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if _, err := conn.WriteMessages(kafka.Message{Value: payload}); err != nil {
		// Reset to disconnected so the next publish redials
		p.dropConn(conn)
		return fmt.Errorf("failed to publish %s event: %w", event.Action, err)
	}

	return nil
}

// ensureConnected returns the live connection, dialing it if needed.
// Concurrent callers during the dial all wait on the same attempt.
func (p *KafkaProducer) ensureConnected(ctx context.Context) (streamConn, error) {
	p.mu.Lock()
	if p.conn != nil {
		conn := p.conn
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	v, err, _ := p.connect.Do("dial", func() (interface{}, error) {
		// A caller that lost the race against a completed dial lands
		// here after the connection is already up
		p.mu.Lock()
		if p.conn != nil {
			conn := p.conn
			p.mu.Unlock()
			return conn, nil
		}
		p.mu.Unlock()

		conn, err := p.dial(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.conn = conn
		p.mu.Unlock()

		p.log.WithField("topic", p.topic).Info("Event stream connection established")
		return conn, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(streamConn), nil
}

// dropConn clears the stored connection if it is still the one the caller
// used, then closes it
func (p *KafkaProducer) dropConn(conn streamConn) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.mu.Unlock()

	if err := conn.Close(); err != nil {
		p.log.WithError(err).Warn("Failed to close event stream connection")
	}
}

// Close shuts down the connection if one was ever established
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
