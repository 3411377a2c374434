package main

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/senharo1981/tdr-store/pkg/config"
	"github.com/senharo1981/tdr-store/pkg/domain/model"
	"github.com/senharo1981/tdr-store/pkg/domain/service"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/events"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/kvstore"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/repository"
)

func openStore(ctx context.Context, cfg *config.Config) (model.KeyValueStore, func(), error) {
	noop := func() {}
	switch cfg.StorageDriver {
	case "memory":
		return kvstore.NewMemoryStore(), noop, nil
	case "file", "":
		return kvstore.NewFileStore(cfg.DataFile), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, errors.Wrap(err, "ping redis")
		}
		return kvstore.NewRedisStore(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil
	case "mysql":
		db, err := kvstore.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, noop, err
		}
		if err := kvstore.Migrate(db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return kvstore.NewMySQLStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, noop, errors.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func buildStorefront(ctx context.Context, cfg *config.Config, sink model.OrderSink) (*service.Storefront, func(), error) {
	sf, err := config.LoadStorefront(cfg.StorefrontFile)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := log.WithField("store", sf.Store.Name)
	dispatcher := events.NewLogDispatcher(logger)

	catalog := service.NewCatalogService(
		ctx,
		repository.NewCatalogRepository(store, cfg.CatalogKey),
		service.CatalogConfig{Seed: sf.Products, Categories: sf.Categories},
		service.NewUUIDGenerator(),
		dispatcher,
		logger.WithField("component", "catalog"),
	)
	checkout := service.NewCheckoutService(service.CheckoutConfig{
		Store:       sf.Store,
		RevertDelay: cfg.SuccessRevertDelay,
		Location:    service.NewLocationCapture(cfg.LocationTimeout),
	}, sink, dispatcher, logger.WithField("component", "checkout"))

	storefront := service.NewStorefront(sf.Store, catalog, checkout)
	cleanup := func() {
		if err := storefront.Close(); err != nil {
			log.WithError(err).Error("failed to close storefront")
		}
		closeStore()
	}
	return storefront, cleanup, nil
}
