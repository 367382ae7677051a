package poller

import (
	"context"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafka(t *testing.T) (string, func()) {
	if testing.Short() {
		t.Skip("skipping Kafka container test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return brokers[0], cleanup
}

func TestCheckoutPoller_Kafka(t *testing.T) {
	broker, cleanup := setupKafka(t)
	defer cleanup()

	topic := "checkout-outbox-test"
	writer := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// retry until the topic has been auto-created
	require.Eventually(t, func() bool {
		return writer.WriteMessages(ctx, kafkaGo.Message{
			Key:   []byte("c-1"),
			Value: []byte(`{"checkout_id":"c-1","user_id":42}`),
		}) == nil
	}, 30*time.Second, 500*time.Millisecond)

	cart := &mockCart{}
	p := NewCheckoutPoller(Config{
		Brokers:   []string{broker},
		Topic:     topic,
		GroupID:   "cart-sync-test",
		ShopperID: "42",
	}, cart, nil)
	defer p.Close()

	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return cart.getClears() == 1
	}, 45*time.Second, 200*time.Millisecond)
}
