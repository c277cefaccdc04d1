// Command server runs the restaurant floor: one dispatcher owning the order
// store, TABLET_COUNT simulated tablets sending it commands, and optionally an
// HTTP gateway that lets real tablets do the same.
//
// @title       Restaurant Orders API
// @version     1.0
// @description Tablet gateway in front of the single-owner order dispatcher.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-restaurant-orders/internal/config"
	"github.com/tbourn/go-restaurant-orders/internal/dispatch"
	httpapi "github.com/tbourn/go-restaurant-orders/internal/http"
	"github.com/tbourn/go-restaurant-orders/internal/logging"
	"github.com/tbourn/go-restaurant-orders/internal/observability"
	"github.com/tbourn/go-restaurant-orders/internal/tablet"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logging.Setup(cfg.LogLevel, cfg.LogPretty, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	sender, commands := dispatch.NewQueue(cfg.QueueCapacity)
	d := dispatch.New(dispatch.Options{
		TableCount:     cfg.TableCount,
		PrintInterval:  cfg.PrintInterval,
		ValidateOrders: cfg.ValidateOrders,
	})
	handled := make(chan uint64, 1)
	go func() { handled <- d.Run(commands) }()

	root := tablet.NewClient(sender)

	var wg sync.WaitGroup
	for i := 1; i <= cfg.TabletCount; i++ {
		c, err := root.Clone()
		if err != nil {
			return err
		}
		name := fmt.Sprintf("tablet-%d", i)
		sim := tablet.NewSimulator(c, tablet.SimulatorOptions{
			Name: name,
			Wait: cfg.TabletWait,
			Rand: rand.New(rand.NewPCG(rand.Uint64(), uint64(i))),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer c.Close()
			if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("tablet", name).Msg("tablet stopped")
			}
		}()
	}
	log.Info().Int("tablets", cfg.TabletCount).Msg("tablets started")

	var (
		srv *http.Server
		gw  *tablet.Client
	)
	serveErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		if gw, err = root.Clone(); err != nil {
			return err
		}

		gin.SetMode(cfg.HTTP.GinMode)
		r := gin.New()
		httpapi.RegisterRoutes(r, gw, cfg.HTTP, cfg.OTEL.ServiceName)

		srv = &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           r,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			IdleTimeout:       cfg.HTTP.IdleTimeout,
			MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		}
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("gateway listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-serveErr:
		log.Error().Err(runErr).Msg("gateway failed")
		stop()
	}

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("gateway shutdown")
		}
		cancel()
		gw.Close()
	}

	// The queue closes once every handle is released.
	wg.Wait()
	root.Close()
	log.Info().Uint64("handled", <-handled).Msg("dispatcher drained")
	return runErr
}
