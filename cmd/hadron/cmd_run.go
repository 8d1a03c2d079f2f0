package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hadron-mkt/hadron/internal/adapters/common"
	"github.com/hadron-mkt/hadron/internal/adapters/kalshi"
	"github.com/hadron-mkt/hadron/internal/adapters/polygon"
	"github.com/hadron-mkt/hadron/internal/config"
	"github.com/hadron-mkt/hadron/internal/coordinator"
	"github.com/hadron-mkt/hadron/internal/domain"
	"github.com/hadron-mkt/hadron/internal/engine"
	"github.com/hadron-mkt/hadron/internal/gateway"
	"github.com/hadron-mkt/hadron/internal/metrics"
	"github.com/hadron-mkt/hadron/internal/normalizer"
	"github.com/hadron-mkt/hadron/internal/persistence/postgres"
	"github.com/hadron-mkt/hadron/internal/ratelimit"
	"github.com/hadron-mkt/hadron/internal/recorder"
	"github.com/hadron-mkt/hadron/internal/router"
	"github.com/hadron-mkt/hadron/internal/strategy"
)

// shutdownGrace bounds how long Run waits for in-flight work to drain
// after the first shutdown signal before it gives up and returns anyway.
const shutdownGrace = 10 * time.Second

// rawEventCapacity is the shared MPSC channel every adapter emits into.
const rawEventCapacity = 10_000

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Hadron ingestion and decision pipeline",
	RunE:  runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.New(prometheus.DefaultRegisterer)

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	var warmCache *normalizer.SecondLevelCache
	if cfg.CacheURL != "" {
		opts, err := redis.ParseURL(cfg.CacheURL)
		if err != nil {
			return fmt.Errorf("parse cache_url: %w", err)
		}
		warmCache = normalizer.NewSecondLevelCache(redis.NewClient(opts), 24*time.Hour)
	}

	instruments := postgres.NewInstrumentsRepo(db, 5*time.Second)
	ticks := postgres.NewTicksRepo(db, 30*time.Second)
	intents := postgres.NewIntentsRepo(db, 5*time.Second)

	norm := normalizer.New(instruments, warmCache, 10_000, reg)
	norm.RegisterTranslator("polygon", normalizer.PolygonTranslator{})
	norm.RegisterTranslator("kalshi", normalizer.KalshiTranslator{})

	rawEvents := make(chan domain.RawEvent, rawEventCapacity)
	limiters := ratelimit.NewManager()
	drivers, err := buildDrivers(cfg, reg, limiters, rawEvents)
	if err != nil {
		return fmt.Errorf("build venue adapters: %w", err)
	}

	rt := router.New(cfg.NumShards, router.DefaultPolicy{}, reg.Router())

	decisions := make(chan domain.StrategyDecision, 1_000)
	orderIntents := make(chan domain.OrderIntent, 1_000)

	lastPrice := gateway.NewLastPriceMap()
	factories := []strategy.Factory{
		func() strategy.Strategy { return strategy.NewSMACrossover("sma-1", 0.01) },
		func() strategy.Strategy { return strategy.NewRSIThreshold("rsi-1", 14, 30, 70) },
	}
	engines := make([]*engine.Engine, cfg.NumShards)
	for i := 0; i < cfg.NumShards; i++ {
		engines[i] = engine.New(i, rt.Shard(i), factories, decisions, reg).WithPriceSink(lastPrice)
	}

	priority := coordinator.StrategyPriority{"sma-1": 0, "rsi-1": 1}
	coord := coordinator.New(coordinator.AllowAllGate{}, priority, orderIntents, reg)

	gw := gateway.New(recorder.NewIntentWriter(intents), lastPrice, reg)

	tickBatcher := recorder.NewTickBatcher(ticks, cfg.FlushTicksSize, cfg.FlushTicksEvery, reg.Recorder())

	log.Info().
		Int("num_shards", cfg.NumShards).
		Bool("simulation_mode", cfg.SimulationMode).
		Msg("hadron: starting pipeline")

	var wg errgroup.Group
	for _, d := range drivers {
		d := d
		wg.Go(func() error { d.Run(ctx); return nil })
	}
	wg.Go(func() error { norm.Run(ctx, rawEvents); return nil })
	wg.Go(func() error { rt.Run(ctx, norm.Broadcaster().Subscribe()); return nil })
	wg.Go(func() error { tickBatcher.Run(ctx, norm.Broadcaster().Subscribe()); return nil })
	for _, e := range engines {
		e := e
		wg.Go(func() error {
			if err := e.Run(ctx); err != nil {
				log.Error().Err(err).Msg("hadron: shard exited with error")
			}
			return nil
		})
	}
	wg.Go(func() error { coord.Run(ctx, decisions); return nil })
	wg.Go(func() error { gw.Run(ctx, orderIntents); return nil })

	<-ctx.Done()
	log.Info().Msg("hadron: shutdown signal received, draining")

	done := make(chan struct{})
	go func() {
		_ = wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		log.Warn().Dur("grace", shutdownGrace).Msg("hadron: shutdown grace period elapsed, exiting anyway")
	}
	return nil
}

// buildDrivers wires one common.Driver per configured venue, choosing the
// Polygon or Kalshi protocol variant by venue name (spec.md §6's
// per-venue config surface).
func buildDrivers(cfg *config.Config, reg *metrics.Registry, limiters *ratelimit.Manager, sink chan<- domain.RawEvent) ([]*common.Driver, error) {
	drivers := make([]*common.Driver, 0, len(cfg.Venues))

	for name, vc := range cfg.Venues {
		rps, burst := vc.RateLimitRPS, vc.RateLimitBurst
		if rps <= 0 {
			rps = 10
		}
		if burst <= 0 {
			burst = 20
		}
		limiters.AddVenue(name, rps, burst)

		threshold := vc.BreakerFailureThreshold
		if threshold == 0 {
			threshold = 5
		}
		cooldown := vc.BreakerCooldown
		if cooldown <= 0 {
			cooldown = time.Minute
		}
		breaker := common.NewFaultBreaker(name, threshold, cooldown)

		var venue common.Venue
		switch name {
		case "polygon":
			apiKey := os.Getenv(vc.APIKeyEnv)
			venue = polygon.New(string(vc.Mode), vc.Endpoint, apiKey, vc.Tickers)
		case "kalshi":
			accessKeyID := ""
			var signer *common.Signer
			if len(vc.Keys) > 0 {
				accessKeyID = vc.Keys[0].AccessKeyID
				pemBytes, err := os.ReadFile(vc.Keys[0].PrivateKeyPath)
				if err != nil {
					return nil, fmt.Errorf("read kalshi private key: %w", err)
				}
				signer, err = common.LoadSignerFromPEM(pemBytes)
				if err != nil {
					return nil, fmt.Errorf("load kalshi signer: %w", err)
				}
			}
			venue = kalshi.New(vc.Endpoint, accessKeyID, signer, vc.Channels, vc.MarketTicker)
		default:
			log.Warn().Str("venue", name).Msg("hadron: unknown venue name in config, skipping")
			continue
		}

		driver := common.NewDriver(venue, sink, reg, breaker).WithRateLimiter(limiters.Limiter(name))
		drivers = append(drivers, driver)
	}
	return drivers, nil
}
