// Package main provides a CLI tool for seeding the database with demo data
// and printing till tokens for a cashier and a manager.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"retailpos/internal/app"
	"retailpos/internal/config"
	"retailpos/internal/core/apperror"
	appctx "retailpos/internal/core/context"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/internal/domain/auth"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/infrastructure/storage/postgres/register_repo"
	"retailpos/pkg/logger"
)

const seedActor = "system:seed"

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatalw("seed requires the postgres storage driver", "driver", cfg.Storage.Driver)
	}
	// The seeder always makes sure the tables exist.
	cfg.Storage.ApplySchema = true

	ctx := context.Background()
	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize services", "error", err)
	}
	defer services.Close()

	if err := seedProducts(ctx, services, log); err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}
	if err := seedCustomers(ctx, services, log); err != nil {
		log.Fatalw("failed to seed customers", "error", err)
	}
	if err := printTokens(cfg, log); err != nil {
		log.Fatalw("failed to issue tokens", "error", err)
	}

	log.Info("seeding completed successfully")
}

type productSeed struct {
	sku      string
	name     string
	category string
	price    string
	taxRate  string
	stock    int64
	tracked  bool
}

var demoProducts = []productSeed{
	{"MILK-1L", "Whole milk 1L", "dairy", "1.49", "7", 120, true},
	{"BREAD-WHT", "White bread", "bakery", "2.20", "7", 60, true},
	{"COFFEE-250", "Ground coffee 250g", "grocery", "6.90", "19", 40, true},
	{"APPLE-KG", "Apples per kg", "produce", "2.99", "7", 200, true},
	{"BAG-PAPER", "Paper bag", "misc", "0.20", "19", 0, false},
	{"GIFT-WRAP", "Gift wrapping", "service", "3.50", "19", 0, false},
}

// seedProducts creates missing products and books their opening stock in one
// transaction. Opening movements go through the COPY path of the stock register.
func seedProducts(ctx context.Context, services *app.App, log *logger.Logger) error {
	stockRepo := register_repo.NewStockRepo(services.TxManager)

	return services.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		var opening []product.StockMovement

		for _, s := range demoProducts {
			if _, err := services.Products.GetBySKU(ctx, s.sku); err == nil {
				log.Infow("product already exists", "sku", s.sku)
				continue
			} else if !apperror.IsNotFound(err) {
				return fmt.Errorf("lookup %s: %w", s.sku, err)
			}

			p := product.NewProduct(s.sku, s.name, types.MustMoney(s.price))
			p.Category = s.category
			p.TaxRate = decimal.RequireFromString(s.taxRate)
			p.TrackInventory = s.tracked
			p.CurrentStock = types.NewQuantity(s.stock)
			if err := services.Products.Create(ctx, p); err != nil {
				return fmt.Errorf("create %s: %w", s.sku, err)
			}

			if s.tracked && s.stock > 0 {
				opening = append(opening, product.StockMovement{
					ID:          id.New(),
					ProductID:   p.ID,
					Quantity:    p.CurrentStock,
					StockBefore: 0,
					StockAfter:  p.CurrentStock,
					Reason:      product.ReasonAdjustment,
					ActorID:     seedActor,
					Note:        "opening stock",
					CreatedAt:   now,
				})
			}
			log.Infow("product created", "sku", s.sku, "stock", p.CurrentStock)
		}

		return stockRepo.CreateMovements(ctx, opening)
	})
}

func seedCustomers(ctx context.Context, services *app.App, log *logger.Logger) error {
	filter := domain.DefaultListFilter()
	filter.Limit = 1
	filter.IncludeInactive = true
	existing, err := services.Customers.List(ctx, filter)
	if err != nil {
		return err
	}
	if existing.TotalCount > 0 {
		log.Infow("customers already seeded", "count", existing.TotalCount)
		return nil
	}

	demo := []struct {
		name        string
		email       string
		creditLimit string
	}{
		{"Ada Walk-in", "", "25.00"},
		{"Corner Cafe", "orders@cornercafe.example", "250.00"},
		{"Lee Family", "lee@example.com", "50.00"},
	}
	for _, d := range demo {
		c := customer.NewCustomer(d.name)
		c.Email = d.email
		c.CreditLimit = types.MustMoney(d.creditLimit)
		if err := services.Customers.Create(ctx, c); err != nil {
			return fmt.Errorf("create customer %s: %w", d.name, err)
		}
		log.Infow("customer created", "name", d.name, "id", c.ID)
	}
	return nil
}

func printTokens(cfg *config.Config, log *logger.Logger) error {
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		jwtConfig.Issuer = cfg.JWT.Issuer
	}
	if cfg.JWT.TTL > 0 {
		jwtConfig.AccessTokenTTL = cfg.JWT.TTL
	}
	svc := auth.NewJWTService(jwtConfig)

	actors := []auth.Actor{
		{UserID: "cashier-1", Name: "Demo Cashier", Roles: []string{appctx.RoleCashier}, DeviceID: "till-1"},
		{UserID: "manager-1", Name: "Demo Manager", Roles: []string{appctx.RoleManager, appctx.RoleCashier}},
	}
	for _, a := range actors {
		token, expiresAt, err := svc.GenerateAccessToken(a)
		if err != nil {
			return err
		}
		log.Infow("token issued", "user_id", a.UserID, "roles", a.Roles, "expires_at", expiresAt)
		fmt.Printf("%s: %s\n", a.UserID, token)
	}
	return nil
}
