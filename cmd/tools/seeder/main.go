package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/fincra-gateway/internal/auth"
	"github.com/noah-isme/fincra-gateway/internal/cart"
	"github.com/noah-isme/fincra-gateway/internal/config"
	"github.com/noah-isme/fincra-gateway/internal/migration"
	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/order"
	"github.com/noah-isme/fincra-gateway/internal/settings"
)

func main() {
	publicKey := flag.String("public-key", os.Getenv("FINCRA_PUBLIC_KEY"), "Fincra public key")
	secretKey := flag.String("secret-key", os.Getenv("FINCRA_SECRET_KEY"), "Fincra secret key")
	businessID := flag.String("business-id", os.Getenv("FINCRA_BUSINESS_ID"), "Fincra business id")
	webhookSecret := flag.String("webhook-secret", os.Getenv("FINCRA_WEBHOOK_SECRET"), "secret used to verify webhook signatures")
	flag.Parse()

	logger := obs.NewLogger("console", "info")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := migration.Up(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	svc := settings.NewService(settings.PGRepository{DB: pool}, logger)
	seed := settings.Defaults()
	seed.PublicKey = *publicKey
	seed.SecretKey = *secretKey
	seed.BusinessID = *businessID
	seed.WebhookSecret = *webhookSecret
	seed.SuccessMessage = "Thank you! Your Fincra payment was received."
	if _, err := svc.Update(ctx, seed, "seeder"); err != nil {
		logger.Fatal().Err(err).Msg("seed gateway settings")
	}

	orders := order.PGStore{DB: pool}
	demo, err := orders.Create(ctx, order.NewOrder{
		CustomerID:       "demo-customer",
		BillingFirstName: "Ada",
		BillingLastName:  "Obi",
		BillingEmail:     "ada@example.com",
		BillingPhone:     "+2348000000000",
		Total:            1500.50,
		Currency:         cfg.StoreCurrency,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed demo order")
	}

	carts := cart.Store{R: rdb}
	if err := carts.AddItem(ctx, demo.CustomerID, "DEMO-SKU-1", 2); err != nil {
		logger.Fatal().Err(err).Msg("seed demo cart")
	}

	token, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue("seeder-admin", auth.RoleAdmin, 24*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue admin token")
	}

	logger.Info().
		Int64("order_id", demo.ID).
		Str("checkout", "POST /api/v1/checkout/"+demo.Reference()+"/fincra").
		Str("admin_token", token).
		Msg("seeding completed")
}
