package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	carthttp "github.com/fjod/go_cart/cart-sync/internal/http"
	"github.com/fjod/go_cart/cart-sync/internal/poller"
	"github.com/fjod/go_cart/cart-sync/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cart API and keep the cart in sync",
	Long: `Starts the local cart HTTP API. The cart is seeded from the local cache,
reconciled with the backend in the background, and cleared when a checkout
event for CART_SHOPPER_ID arrives on Kafka (if KAFKA_BROKERS is set).`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	local, closeLocal, err := openLocalStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocal()

	cart := store.Open(ctx, local, newRemote(cfg, log), storeOptions(cfg, log)...)
	defer cart.Close()

	if len(cfg.KafkaBrokers) > 0 && cfg.ShopperID != "" {
		p := poller.NewCheckoutPoller(poller.Config{
			Brokers:   cfg.KafkaBrokers,
			Topic:     cfg.CheckoutTopic,
			GroupID:   cfg.KafkaGroupID,
			ShopperID: cfg.ShopperID,
		}, cart, log)
		defer p.Close()
		go p.Run(ctx)
		log.Info("checkout poller started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	handler := carthttp.NewCartHandler(cart, cfg.RequestTimeout, log)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      carthttp.NewRouter(handler, cfg.RequestTimeout, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("cart-sync listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
