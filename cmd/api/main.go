package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/handlers"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/lifecycle"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/views"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store/gormstore"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store/memstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Production())
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(exitCode(lg, run(cfg, lg)))
}

// exitCode flushes lg before the process exits, so it must not use Fatal.
func exitCode(lg *zap.Logger, err error) int {
	code := 0
	if err != nil {
		lg.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = lg.Sync()
	return code
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, lg)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(lg)
	go hub.Run(ctx)

	sinks := []notify.Publisher{notify.HubPublisher{Hub: hub}}

	var dedupe views.Deduper
	if rdb := openRedis(ctx, cfg, lg); rdb != nil {
		defer rdb.Close()
		dedupe = views.NewRedisDeduper(rdb, cfg.ViewDedupeTTL)
		sinks = append(sinks, notify.RedisPublisher{Client: rdb, Channel: notify.DefaultRedisChannel})
	}

	if cfg.AMQPURL != "" {
		amqpPub, err := notify.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			// events still reach websocket and redis subscribers
			lg.Warn("amqp disabled", zap.Error(err))
		} else {
			defer amqpPub.Close()
			sinks = append(sinks, amqpPub)
		}
	}

	recorder := views.NewRecorder(st, dedupe, lg)
	defer recorder.Wait()

	engine := lifecycle.New(st, lg)
	svc := matching.New(st, engine, recorder, notify.NewFanout(lg, sinks...), matching.Options{
		ListTimeout:     cfg.ListTimeout,
		DefaultLimit:    cfg.ListDefaultLimit,
		MaxLimit:        cfg.ListMaxLimit,
		MilestonePolicy: cfg.MilestonePolicy,
	}, lg)

	app := handlers.NewRouter(handlers.RouterDeps{
		Svc:            svc,
		Hub:            hub,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins(),
		Log:            lg,
	})

	errc := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("port", cfg.AppPort), zap.String("store", cfg.StoreDriver))
		errc <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func openStore(cfg config.Config, lg *zap.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		lg.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	return gormstore.New(gdb), nil
}

// openRedis returns nil when redis is disabled or unreachable; view dedupe and
// pub/sub are then skipped.
func openRedis(ctx context.Context, cfg config.Config, lg *zap.Logger) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}
	rdb := realtime.NewRedis(realtime.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		lg.Warn("redis not reachable, continuing without it", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		rdb.Close()
		return nil
	}
	lg.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	return rdb
}
