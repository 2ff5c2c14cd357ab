// Package app assembles the booking components into one State shared by the
// HTTP adapter.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"ms-booking/internal/audit"
	"ms-booking/internal/cart"
	"ms-booking/internal/catalog"
	"ms-booking/internal/config"
	"ms-booking/internal/coupon"
	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/order"
	"ms-booking/internal/order/db"
	"ms-booking/internal/pricing"
	"ms-booking/internal/settings"
	"ms-booking/internal/sse"
	"ms-booking/internal/voucher"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Deps are the infrastructure adapters chosen by the caller.
type Deps struct {
	DB      order.DBLayer
	Lock    order.CheckoutLock
	Events  order.EventPublisher
	Settler order.Settler
}

// State is the single session the service runs. It is built once and passed
// by reference; components own their state and guard it themselves.
type State struct {
	Config   *config.Config
	Logger   *logger.Logger
	Engine   *pricing.Engine
	Emitter  *sse.Emitter
	Audit    *audit.Log
	Catalog  *catalog.Store
	Coupons  *coupon.Store
	Cart     *cart.Cart
	Settings *settings.Provider
	Orders   *order.OrderService
	Voucher  *voucher.Generator
	Metrics  *metrics.Metrics
}

func New(cfg *config.Config, l *logger.Logger, deps Deps) (*State, error) {
	seed, err := catalog.DefaultSeed()
	if err != nil {
		return nil, err
	}

	s := &State{
		Config:  cfg,
		Logger:  l,
		Engine:  pricing.NewEngine(),
		Emitter: sse.NewEmitter(),
		Metrics: metrics.New(),
		Voucher: voucher.NewGenerator(cfg.Voucher.Secret, cfg.Voucher.Size),
	}
	s.Audit = audit.NewLog(l, s.Emitter)

	s.Catalog = catalog.NewStore(s.Audit)
	s.Catalog.Load(seed)
	s.Coupons = coupon.NewStore(s.Audit, seed.Coupons)
	s.Cart = cart.New(s.Engine, s.Coupons)
	s.Settings = settings.NewProvider(settings.Defaults(cfg), s.Audit)

	s.Orders = order.NewOrderService(deps.DB, deps.Lock, deps.Events, deps.Settler, s.Settings, s.Audit, l)
	s.Orders.Engine = s.Engine
	s.Orders.Notifier = s.Emitter
	s.Orders.Metrics = s.Metrics

	l.Info("APP", fmt.Sprintf("Catalog loaded: %d services, %d categories, %d coupons",
		len(seed.Services), len(seed.Categories), len(seed.Coupons)))
	return s, nil
}

// OpenDatabase opens the sqlite database behind bun and creates the tables.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, l *logger.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	if err := db.Migrate(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, err
	}

	l.LogDatabase("MIGRATE", "orders,transactions", fmt.Sprintf("schema ready (%s)", cfg.DSN))
	return bunDB, nil
}
