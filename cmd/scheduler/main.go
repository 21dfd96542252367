package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/quote-refresh-service/internal/api"
	"github.com/trogers1052/quote-refresh-service/internal/config"
	"github.com/trogers1052/quote-refresh-service/internal/fmp"
	"github.com/trogers1052/quote-refresh-service/internal/kafka"
	"github.com/trogers1052/quote-refresh-service/internal/logger"
	"github.com/trogers1052/quote-refresh-service/internal/notifier"
	"github.com/trogers1052/quote-refresh-service/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if cfg.Secrets.Provider == config.SecretsProviderSSM {
		client, err := config.NewSSMClient(ctx, cfg.Secrets.Region)
		if err != nil {
			panic("failed to create ssm client: " + err.Error())
		}
		if err := cfg.ResolveSecrets(ctx, client); err != nil {
			panic("failed to resolve secrets: " + err.Error())
		}
	}

	if err := cfg.Validate(); err != nil {
		panic("invalid config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("quote refresh service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	client := fmp.NewClient(cfg.FMP.BaseURL, cfg.FMP.APIKey, cfg.FMP.Timeout,
		fmp.WithRateLimit(cfg.FMP.RequestsPerSecond, 1),
		fmp.WithExchanges(cfg.FMP.Exchanges...),
	)

	mailer, err := notifier.New(cfg.Email, log.Named("notifier"))
	if err != nil {
		return err
	}

	deps := scheduler.Dependencies{
		Client:        client,
		Quotes:        st.quotes,
		Subscriptions: st.subscriptions,
		Users:         st.users,
		State:         st.runState,
		Notifier:      mailer,
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()
		deps.Events = producer

		consumer := kafka.NewRearmConsumer(cfg.Kafka.Brokers, cfg.Kafka.RearmTopic, cfg.Kafka.ConsumerGroup,
			st.subscriptions, log.Named("rearm"))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error("Re-arm consumer stopped", zap.Error(err))
			}
		}()
		log.Info("Kafka enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	sched := scheduler.New(deps, scheduler.Options{
		MaxCallsPerDay: cfg.Scheduler.MaxCallsPerDay,
		FetchBatchSize: cfg.Scheduler.FetchBatchSize,
		Exchanges:      cfg.FMP.Exchanges,
	}, log.Named("scheduler"))

	runner, err := scheduler.NewRunner(sched, cfg.Scheduler.Cron, cfg.Scheduler.RunOnStart, log)
	if err != nil {
		return err
	}
	runner.Start(ctx)
	defer runner.Stop()

	handler := api.NewHandler(sched, st.quotes, st.runState, st.checks, log.Named("api"))
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
