package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "cart-sync-consumer"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer is the part of the cart store the poller needs.
type CartClearer interface {
	ClearCart(ctx context.Context)
}

// CheckoutPoller empties the local cart once the shopper's checkout completes.
type CheckoutPoller struct {
	reader    messageReader
	cart      CartClearer
	shopperID string
	backoff   time.Duration
	log       *zap.Logger
}

type Config struct {
	Brokers   []string
	Topic     string
	GroupID   string
	ShopperID string
}

func NewCheckoutPoller(cfg Config, cart CartClearer, log *zap.Logger) *CheckoutPoller {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return newCheckoutPoller(reader, cart, cfg.ShopperID, log)
}

func newCheckoutPoller(reader messageReader, cart CartClearer, shopperID string, log *zap.Logger) *CheckoutPoller {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutPoller{
		reader:    reader,
		cart:      cart,
		shopperID: shopperID,
		backoff:   time.Second,
		log:       log.With(zap.String("component", "checkout-poller")),
	}
}

func (p *CheckoutPoller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.handleNext(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("checkout message skipped", zap.Error(err))
		}
	}
}

func (p *CheckoutPoller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

var errNotForShopper = errors.New("event for another shopper")

func (p *CheckoutPoller) handleNext(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-time.After(p.backoff):
		case <-ctx.Done():
		}
		return fmt.Errorf("error reading message: %w", err)
	}

	err = p.handle(ctx, m)
	if errors.Is(err, errNotForShopper) {
		return nil
	}
	return err
}

func (p *CheckoutPoller) handle(ctx context.Context, m kafka.Message) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}

	userID := idString(payload["user_id"])
	if userID == "" {
		return errors.New("missing or invalid user_id")
	}
	if userID != p.shopperID {
		return errNotForShopper
	}

	p.cart.ClearCart(ctx)
	p.log.Info("cart cleared after checkout",
		zap.String("user_id", userID),
		zap.Any("checkout_id", payload["checkout_id"]))
	return nil
}

// idString accepts string and numeric ids; the checkout service emits numbers.
func idString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}
