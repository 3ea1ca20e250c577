package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"BasketRisk/internal/analytics"
	"BasketRisk/internal/collector"
	"BasketRisk/internal/config"
	"BasketRisk/internal/mc"
	"BasketRisk/internal/notifier"
	"BasketRisk/internal/observability"
	"BasketRisk/internal/recorder"
	"BasketRisk/internal/scenario"
	"BasketRisk/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run one report, print it and exit")
	cfgPath := flag.String("config", config.Path(), "path to the YAML config")
	scenarioPath := flag.String("scenarios", "", "optional YAML file replacing the configured scenario list")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		observability.NewLogger("main").Fatal().Err(err).Msg("load config")
	}
	level := observability.ParseLevel(cfg.LogLevel)
	log := observability.NewLoggerWithLevel("main", level)
	logger := func(component string) zerolog.Logger {
		return observability.NewLoggerWithLevel(component, level)
	}

	if *scenarioPath != "" {
		data, err := os.ReadFile(*scenarioPath)
		if err != nil {
			log.Fatal().Err(err).Msg("read scenarios")
		}
		if cfg.Scenarios.List, err = scenario.Parse(data); err != nil {
			log.Fatal().Err(err).Msg("parse scenarios")
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Strs("symbols", cfg.Market.Symbols).Str("source", cfg.Market.Source).Msg("BasketRisk starting")

	var fetcher collector.Fetcher
	switch cfg.Market.Source {
	case "vstrader":
		fetcher = collector.NewVsTraderFetcher(cfg.Market.BaseURL, cfg.Market.APIKey, cfg.Proxy)
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	default:
		fetcher = collector.NewSyntheticFetcher(cfg.Market.SyntheticSeed)
	}
	col := collector.NewCollector(fetcher, cfg.Market.Symbols, cfg.Market.LookbackDays, logger("collector"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	engine := mc.NewEngine(logger("mc"), metrics)
	runner := analytics.NewRunner(engine, analytics.Settings{
		Option:    cfg.OptionSpec(),
		Pricing:   cfg.PricingConfig(),
		Greeks:    cfg.GreeksConfig(),
		Scenarios: cfg.ScenarioConfig(),
		Epsilon:   cfg.Greeks.Epsilon,
		Sweep:     cfg.Scenarios.List,
		Partial:   cfg.Scenarios.Partial,
	}, metrics, logger("analytics"))

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			log.Warn().Err(err).Msg("create database directory")
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger("recorder"))
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		console := &notifier.ConsoleNotifier{W: os.Stdout}
		sched := scheduler.NewScheduler(ctx, col, runner, console, rec, logger("scheduler"))
		report, err := sched.RunNow(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("risk report")
		}
		if err := console.SendWithRetry(ctx, notifier.FormatRiskReport(report), 0); err != nil {
			log.Fatal().Err(err).Msg("print report")
		}
		return
	}

	health := observability.NewHealthChecker()
	if cfg.Metrics.ListenAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           observability.NewMux(health, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("metrics server listening")
	}

	var out notifier.Notifier = &notifier.ConsoleNotifier{W: os.Stdout}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger("telegram"))
		out = tn
	}

	sched := scheduler.NewScheduler(ctx, col, runner, out, rec, logger("scheduler"))
	if err := sched.Register(cfg.Schedule.ReportCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart || os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("running report on start")
		go sched.HandleCommand(ctx, "/report")
	}

	health.SetReady(true)
	log.Info().Msg("BasketRisk is running. Press Ctrl+C to stop.")

	<-ctx.Done()
	health.SetReady(false)
	log.Info().Msg("shutdown signal received, stopping")
}
