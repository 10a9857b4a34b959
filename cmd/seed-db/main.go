package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/solmarket/cart-api/internal/repository"
)

type storeJSON struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Slug                  string          `json:"slug"`
	ShippingFee           decimal.Decimal `json:"shippingFee"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type variantJSON struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
}

type productJSON struct {
	ID            string           `json:"id"`
	StoreID       string           `json:"storeId"`
	CategoryID    string           `json:"categoryId"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	Variants      []variantJSON    `json:"variants"`
}

type catalogJSON struct {
	Stores     []storeJSON    `json:"stores"`
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyUser   string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or CART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "user-demo", "user ID the seeded API key authenticates")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CART_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CART_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyUser, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, apiKeyUser, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seed := repository.NewSeedRepository(pool)

	if err := seedCatalog(ctx, seed, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedCoupons(ctx, seed); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, seed, apiKey, apiKeyUser, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCatalog(ctx context.Context, seed *repository.SeedRepository, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting catalog",
		slog.Int("stores", len(catalog.Stores)),
		slog.Int("categories", len(catalog.Categories)),
		slog.Int("products", len(catalog.Products)),
	)

	for _, s := range catalog.Stores {
		if err := seed.UpsertStore(ctx, repository.StoreParams{
			ID:                    s.ID,
			Name:                  s.Name,
			Slug:                  s.Slug,
			ShippingFee:           s.ShippingFee,
			FreeShippingThreshold: s.FreeShippingThreshold,
		}); err != nil {
			return err
		}
	}

	for _, c := range catalog.Categories {
		if err := seed.UpsertCategory(ctx, c.ID, c.Name); err != nil {
			return err
		}
	}

	for _, p := range catalog.Products {
		if err := seed.UpsertProduct(ctx, repository.ProductParams{
			ID:            p.ID,
			StoreID:       p.StoreID,
			CategoryID:    p.CategoryID,
			Name:          p.Name,
			Image:         p.Image,
			Price:         p.Price,
			DiscountPrice: p.DiscountPrice,
		}); err != nil {
			return err
		}
		for _, v := range p.Variants {
			if err := seed.UpsertVariant(ctx, repository.VariantParams{
				ID:            v.ID,
				ProductID:     p.ID,
				Name:          v.Name,
				Price:         v.Price,
				DiscountPrice: v.DiscountPrice,
			}); err != nil {
				return err
			}
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, seed *repository.SeedRepository) error {
	slog.Info("seeding demo coupons")

	coupons := []repository.CouponParams{
		{
			Code:         "SAVE10",
			DiscountType: "percentage",
			Value:        decimal.NewFromInt(10),
			Scope:        "all_products",
			Description:  "10% off your entire cart",
			Active:       true,
		},
		{
			Code:         "TENOFF",
			DiscountType: "fixed",
			Value:        decimal.NewFromInt(10),
			MinPurchase:  decimal.NewFromInt(50),
			Scope:        "all_products",
			Description:  "$10 off orders over $50",
			Active:       true,
		},
		{
			Code:         "GROCERY5",
			DiscountType: "percentage",
			Value:        decimal.NewFromInt(5),
			Scope:        "specific_categories",
			CategoryIDs:  []string{"cat-grocery"},
			Description:  "5% off groceries",
			Active:       true,
		},
	}

	for _, c := range coupons {
		if err := seed.UpsertCoupon(ctx, c); err != nil {
			return err
		}
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, seed *repository.SeedRepository, apiKey, userID, pepper string) error {
	slog.Info("seeding default API key", slog.String("user_id", userID))

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := seed.UpsertAPIKey(ctx, repository.APIKeyParams{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default test key",
		UserID:  userID,
	}); err != nil {
		return err
	}

	slog.Info("upserted API key", slog.String("id", "default"))

	return nil
}
