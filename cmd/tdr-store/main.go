package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/senharo1981/tdr-store/pkg/config"
	"github.com/senharo1981/tdr-store/pkg/domain/model"
	"github.com/senharo1981/tdr-store/pkg/domain/service"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/geolocation"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/kvstore"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/messaging"
	"github.com/senharo1981/tdr-store/transport"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:     "tdr-store",
		Usage:    "single-storefront ordering engine",
		Metadata: map[string]interface{}{},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return errors.Wrap(err, "parse log level")
			}
			log.SetLevel(level)
			c.App.Metadata["config"] = cfg
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			catalogCommand(),
			orderCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("tdr-store failed")
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the storefront HTTP API",
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			storefront, cleanup, err := buildStorefront(ctx, cfg, messaging.NewLogSink(log.StandardLogger()))
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{Addr: cfg.ListenAddr, Handler: transport.Router(storefront)}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithFields(log.Fields{"url": cfg.ListenAddr}).Info("Starting server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "listen")
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the MySQL key-value schema",
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if cfg.MySQLDSN == "" {
				return errors.New("TDR_MYSQL_DSN is not set")
			}
			db, err := kvstore.OpenMySQL(c.Context, cfg.MySQLDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := kvstore.Migrate(db); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "inspect the product catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print products, optionally filtered",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}},
					&cli.StringFlag{Name: "category", Value: model.AllCategories},
				},
				Action: func(c *cli.Context) error {
					storefront, cleanup, err := buildStorefront(c.Context, configFrom(c), messaging.NewLogSink(log.StandardLogger()))
					if err != nil {
						return err
					}
					defer cleanup()

					for _, p := range storefront.Browse(c.String("query"), c.String("category")) {
						fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\tRs. %s\t%s\n", p.ID, p.Name, p.Unit, p.Price.String(), p.Category)
					}
					return nil
				},
			},
		},
	}
}

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "build an order from product ids and print the chat link",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "item", Usage: "product id, repeat to add more", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "phone", Required: true},
			&cli.StringFlag{Name: "address", Required: true},
			&cli.Float64Flag{Name: "lat"},
			&cli.Float64Flag{Name: "lng"},
		},
		Action: func(c *cli.Context) error {
			storefront, cleanup, err := buildStorefront(c.Context, configFrom(c), messaging.NewWriterSink(c.App.Writer))
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range c.StringSlice("item") {
				if _, err := storefront.AddToBasket(id); err != nil {
					return errors.Wrapf(err, "add %s", id)
				}
			}
			checkout := storefront.Checkout()
			if err := checkout.Proceed(); err != nil {
				return err
			}
			if c.IsSet("lat") && c.IsSet("lng") {
				fix := geolocation.Fixed{Latitude: c.Float64("lat"), Longitude: c.Float64("lng")}
				if res := <-checkout.CaptureLocation(c.Context, fix); res.Err != nil {
					log.WithError(res.Err).Warn("continuing without location")
				}
			}

			_, err = storefront.PlaceOrder(c.Context, model.CustomerDetails{
				Name:    c.String("name"),
				Phone:   c.String("phone"),
				Address: c.String("address"),
			})
			if errors.Is(err, service.ErrMissingDeliveryDetails) {
				return cli.Exit(err.Error(), 2)
			}
			return err
		},
	}
}
