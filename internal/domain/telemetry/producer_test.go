package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessages(msgs ...kafka.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.messages = append(f.messages, msgs...)
	return len(msgs), nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestProducer(dial func(ctx context.Context) (streamConn, error)) *KafkaProducer {
	return &KafkaProducer{
		topic: "users-events",
		log:   quietLogger(),
		dial:  dial,
	}
}

func testEvent() Event {
	return Event{
		UserID:    "user-1",
		Action:    ActionAddToCart,
		ProductID: "p1",
		ShopID:    "shop-1",
		Device:    "test-device",
		Country:   "US",
		City:      "Portland",
	}
}

func TestConcurrentPublishesDialOnce(t *testing.T) {
	conn := &fakeConn{}
	var dials int32

	producer := newTestProducer(func(ctx context.Context) (streamConn, error) {
		atomic.AddInt32(&dials, 1)
		// Hold the dial open long enough for every caller to pile up on it
		time.Sleep(50 * time.Millisecond)
		return conn, nil
	})

	const publishers = 10
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, producer.Publish(context.Background(), testEvent()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
	assert.Equal(t, publishers, conn.messageCount())
}

func TestDialFailureAllowsRetry(t *testing.T) {
	conn := &fakeConn{}
	var dials int32

	producer := newTestProducer(func(ctx context.Context) (streamConn, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return nil, errors.New("broker unreachable")
		}
		return conn, nil
	})

	err := producer.Publish(context.Background(), testEvent())
	require.Error(t, err)

	// The failed attempt left the producer disconnected, so the next
	// publish dials again from scratch
	require.NoError(t, producer.Publish(context.Background(), testEvent()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&dials))
	assert.Equal(t, 1, conn.messageCount())
}

func TestWriteFailureResetsConnection(t *testing.T) {
	broken := &fakeConn{writeErr: errors.New("pipe closed")}
	healthy := &fakeConn{}
	var dials int32

	producer := newTestProducer(func(ctx context.Context) (streamConn, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return broken, nil
		}
		return healthy, nil
	})

	err := producer.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.True(t, broken.closed)

	require.NoError(t, producer.Publish(context.Background(), testEvent()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&dials))
	assert.Equal(t, 1, healthy.messageCount())
}

func TestConnectionReusedAcrossPublishes(t *testing.T) {
	conn := &fakeConn{}
	var dials int32

	producer := newTestProducer(func(ctx context.Context) (streamConn, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, producer.Publish(context.Background(), testEvent()))
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
	assert.Equal(t, 5, conn.messageCount())
}

func TestPublishPayloadShape(t *testing.T) {
	conn := &fakeConn{}
	producer := newTestProducer(func(ctx context.Context) (streamConn, error) {
		return conn, nil
	})

	require.NoError(t, producer.Publish(context.Background(), testEvent()))
	require.Equal(t, 1, conn.messageCount())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(conn.messages[0].Value, &payload))

	assert.Equal(t, map[string]string{
		"userId":    "user-1",
		"action":    "add_to_cart",
		"productId": "p1",
		"shopId":    "shop-1",
		"device":    "test-device",
		"country":   "US",
		"city":      "Portland",
	}, payload)
}

func TestCloseWithoutConnection(t *testing.T) {
	producer := newTestProducer(func(ctx context.Context) (streamConn, error) {
		t.Fatal("dial should not run")
		return nil, nil
	})

	assert.NoError(t, producer.Close())
}

func TestHasContext(t *testing.T) {
	assert.True(t, testEvent().HasContext())

	for _, mutate := range []func(*Event){
		func(e *Event) { e.UserID = "" },
		func(e *Event) { e.Country = "" },
		func(e *Event) { e.City = "" },
		func(e *Event) { e.Device = "" },
	} {
		event := testEvent()
		mutate(&event)
		assert.False(t, event.HasContext())
	}
}
