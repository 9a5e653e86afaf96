package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"friday/internal/app"
	"friday/internal/config"
	"friday/internal/db"
	"friday/internal/logging"
	"friday/internal/metrics"
	"friday/internal/mqtt"
	"friday/internal/server"
	"friday/internal/session"
	"friday/internal/skills"
)

func main() {
	configFile := flag.StringP("config", "c", "", "path to config file (default ./config.yaml)")
	flag.Parse()

	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.WithError(err).Fatal("load config failed")
	}
	logger.Infof("log level set to %s", logging.SetLevel(cfg.Log.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var taught app.TaughtSource
	if cfg.DB.DSN != "" {
		store, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.WithError(err).Fatal("connect db failed")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("migrate db failed")
		}
		taught = store
	} else {
		logger.Info("db.dsn not set, taught expressions disabled")
	}

	var (
		hub     *mqtt.Hub
		invoker skills.Invoker
	)
	if cfg.MQTT.Enabled {
		hub = mqtt.NewHub(mqtt.HubConfig{
			BrokerURL:     cfg.MQTT.BrokerURL,
			ClientID:      cfg.MQTT.ClientID,
			Username:      cfg.MQTT.Username,
			Password:      cfg.MQTT.Password,
			TopicPrefix:   cfg.MQTT.TopicPrefix,
			InvokeTimeout: cfg.ToolTimeout,
		}, logger)
		invoker = hub
	}

	catalog, err := app.BuildCatalog(ctx, cfg, taught, invoker, logger)
	if err != nil {
		logger.WithError(err).Fatal("build skill catalog failed")
	}
	table := catalog.Understander().Table()
	logger.WithFields(logrus.Fields{
		"intents":     len(table.Intents()),
		"expressions": table.Len(),
	}).Info("skills registered")

	sessions := session.New(catalog.Understander(), cfg.Session.TTL)
	m := metrics.New()

	if hub != nil {
		hub.Bind(catalog, sessions, m)
		if err := hub.Start(ctx); err != nil {
			logger.WithError(err).Fatal("start mqtt hub failed")
		}
	}

	go sweepSessions(ctx, sessions, m, cfg.Session.TTL)

	httpServer := server.New(catalog, sessions, m, logger).HTTPServer(cfg.Server.HTTPAddr)

	go func() {
		logger.WithField("addr", cfg.Server.HTTPAddr).Infof("%s server started", cfg.Assistant.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server error")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown failed")
	}
	cancel()
	if hub != nil {
		hub.Wait()
	}
}

func sweepSessions(ctx context.Context, sessions *session.Store, m *metrics.Metrics, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
			m.SetSessions(sessions.Len())
		}
	}
}
