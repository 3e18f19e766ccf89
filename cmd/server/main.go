package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lokapasar-be/internal/cart"
	"lokapasar-be/internal/checkout"
	"lokapasar-be/internal/config"
	"lokapasar-be/internal/coupon"
	"lokapasar-be/internal/db"
	"lokapasar-be/internal/httpx"
	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/notification"
	"lokapasar-be/internal/order"
	"lokapasar-be/internal/payment/webhook"
	"lokapasar-be/internal/product"
	"lokapasar-be/internal/user"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// flatRateShipping is the placeholder carrier: a flat fee per order.
// Swap for a real carrier integration via checkout.ShippingCalculator.
func flatRateShipping(_ order.ShippingAddress, _ *cart.Cart) decimal.Decimal {
	return decimal.RequireFromString("15000")
}

// ppn11 applies the Indonesian VAT rate to the taxable base.
func ppn11(_ order.ShippingAddress, subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(decimal.RequireFromString("0.11")).Round(2)
}

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	publisher := notification.NewPublisher(strings.Split(cfg.KafkaBrokers, ","))
	defer publisher.Close()

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo)

	guestStore := cart.NewGuestStore(rdb, 7*24*time.Hour)
	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo, productSvc, guestStore)

	inventoryRepo := inventory.NewRepository(database)
	inventorySvc := inventory.NewService(inventoryRepo, publisher)

	couponRepo := coupon.NewRepository(database)
	couponSvc := coupon.NewService(couponRepo)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, inventorySvc, publisher)

	checkoutSvc := checkout.NewService(
		cartSvc,
		productSvc,
		inventorySvc,
		couponSvc,
		orderSvc,
		flatRateShipping,
		ppn11,
		cfg.ReservationTTL,
		cfg.DefaultLocationID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background loops: expired-reservation sweeper and stale-pending watcher.
	sweeper := inventory.NewSweeper(inventorySvc, cfg.SweepInterval)
	go sweeper.Run(ctx)

	watcher := order.NewWatcher(orderRepo, orderSvc, cfg.PendingOrderTimeout, cfg.SweepInterval)
	go watcher.Run(ctx)

	router := httpx.NewRouter(httpx.Deps{
		Users:     userSvc,
		Products:  productSvc,
		Carts:     cartSvc,
		Coupons:   couponSvc,
		Inventory: inventorySvc,
		Orders:    orderSvc,
		Checkout:  checkoutSvc,
		Webhook:   webhook.NewHandler(orderSvc, cfg.WebhookSecret),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
