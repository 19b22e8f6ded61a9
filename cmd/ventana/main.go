// Ventana Core - window controller state service
//
// This is the main entry point for the ventana core service. It listens to
// the window controller's MQTT topics, reconciles every report into the
// device record, applies the automatic control policy, records history,
// pushes alarm notifications and broadcasts each update to dashboards.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nerrad567/ventana-core/internal/account"
	"github.com/nerrad567/ventana-core/internal/api"
	"github.com/nerrad567/ventana-core/internal/broadcast"
	"github.com/nerrad567/ventana-core/internal/command"
	"github.com/nerrad567/ventana-core/internal/device"
	"github.com/nerrad567/ventana-core/internal/infrastructure/config"
	"github.com/nerrad567/ventana-core/internal/infrastructure/database"
	"github.com/nerrad567/ventana-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/ventana-core/internal/infrastructure/logging"
	"github.com/nerrad567/ventana-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ventana-core/internal/notify"
	"github.com/nerrad567/ventana-core/internal/push"
	"github.com/nerrad567/ventana-core/internal/reconcile"
	"github.com/nerrad567/ventana-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often old history entries are deleted.
const pruneInterval = 24 * time.Hour

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring is linear
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ventana core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	store := device.NewSQLiteStore(db.DB)
	history := device.NewSQLiteHistoryRepository(db.DB)
	users := account.NewSQLiteRepository(db.DB)

	if seedErr := seedDevice(ctx, cfg.Device, store, users, log); seedErr != nil {
		return seedErr
	}

	// Embedded broker (optional, single-box installs)
	if cfg.MQTT.Embedded.Enabled {
		broker, brokerErr := mqtt.StartEmbeddedBroker(cfg.MQTT.Embedded.Address, log.Logger)
		if brokerErr != nil {
			return fmt.Errorf("starting embedded MQTT broker: %w", brokerErr)
		}
		defer func() {
			log.Info("stopping embedded MQTT broker")
			if closeErr := broker.Close(); closeErr != nil {
				log.Error("error stopping embedded broker", "error", closeErr)
			}
		}()
		host, port, addrErr := broker.HostPort()
		if addrErr != nil {
			return fmt.Errorf("resolving embedded broker address: %w", addrErr)
		}
		cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port = host, port
		log.Info("embedded MQTT broker started", "address", broker.Addr())
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Realtime broadcast: WebSocket hub always, Redis and InfluxDB when enabled
	hub := api.NewHub(cfg.WebSocket, log, store, cfg.Device.ID)
	go hub.Run(ctx)

	fanout := broadcast.NewFanout()
	fanout.Add("websocket", hub)

	if cfg.Redis.Enabled {
		rdb, redisErr := connectRedis(ctx, cfg.Redis)
		if redisErr != nil {
			return redisErr
		}
		defer func() {
			log.Info("closing Redis connection")
			if closeErr := rdb.Close(); closeErr != nil {
				log.Error("error closing Redis", "error", closeErr)
			}
		}()
		fanout.Add("redis", broadcast.NewRedisSink(rdb, cfg.Redis.KeyPrefix))
		log.Info("Redis state mirror enabled", "addr", cfg.Redis.Addr)
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		fanout.Add("influxdb", broadcast.NewInfluxSink(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Alarm notifications
	var notifier reconcile.Notifier
	if cfg.Push.Enabled {
		sender := push.NewSender(push.Config{
			URL:         cfg.Push.URL,
			AccessToken: cfg.Push.AccessToken,
			Timeout:     cfg.GetPushTimeout(),
			RetryCount:  cfg.Push.RetryCount,
		})
		notifier = notify.NewDispatcher(users, sender, log)
		log.Info("push notifications enabled", "url", cfg.Push.URL)
	} else {
		log.Info("push notifications disabled")
	}

	// Reconcile pipeline fed by the MQTT ingress
	topics := device.NewTopics(cfg.Device.TopicPrefix)
	pipeline, err := reconcile.NewPipeline(reconcile.Options{
		DeviceID:    cfg.Device.ID,
		Classifier:  device.NewClassifier(topics),
		Store:       store,
		History:     history,
		Notifier:    notifier,
		Broadcaster: fanout,
		Timeout:     cfg.GetMessageTimeout(),
		Logger:      log.With("component", "reconcile"),
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	ingress := reconcile.NewIngress(mqttClient, topics.Wildcard(), pipeline, cfg.Pipeline.QueueSize, log)
	if startErr := ingress.Start(ctx); startErr != nil {
		return fmt.Errorf("starting ingress: %w", startErr)
	}
	defer func() {
		log.Info("stopping ingress")
		ingress.Stop()
	}()
	log.Info("ingress started",
		"topic", topics.Wildcard(),
		"device_id", cfg.Device.ID,
		"queue_size", cfg.Pipeline.QueueSize,
	)

	// HTTP API
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		DeviceID: cfg.Device.ID,
		Devices:  store,
		History:  history,
		Users:    users,
		Commands: command.NewSender(topics, mqttClient),
		Hub:      hub,
		Database: db,
		MQTT:     mqttClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.Database.HistoryRetentionDays > 0 {
		retention := time.Duration(cfg.Database.HistoryRetentionDays) * 24 * time.Hour
		go runHistoryPruner(ctx, history, retention, log)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred functions run in reverse order: API, ingress (drains queued
	// messages), InfluxDB, Redis, MQTT, broker, database.

	log.Info("ventana core stopped")
	return nil
}

// getConfigPath returns VENTANA_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("VENTANA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// seedDevice creates the configured owner account and registers the
// configured device to it. Both steps are idempotent across restarts.
func seedDevice(ctx context.Context, cfg config.DeviceConfig, store device.Store, users account.Repository, log *logging.Logger) error {
	var ownerID string
	if cfg.Owner.Username != "" {
		owner, err := account.EnsureOwner(ctx, users, cfg.Owner.Username, cfg.Owner.PushToken, log.Logger)
		if err != nil {
			return fmt.Errorf("seeding owner: %w", err)
		}
		ownerID = owner.ID
	}

	_, err := store.Register(ctx, cfg.ID, ownerID)
	switch {
	case err == nil:
		log.Info("device registered", "device_id", cfg.ID, "owner_id", ownerID)
		return nil
	case !errors.Is(err, device.ErrDeviceExists):
		return fmt.Errorf("registering device: %w", err)
	}

	if ownerID == "" {
		return nil
	}
	if err := store.AssignOwner(ctx, cfg.ID, ownerID); err != nil {
		return fmt.Errorf("assigning device owner: %w", err)
	}
	return nil
}

// connectRedis opens the Redis client and verifies it answers.
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("connecting to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// historyPruner is the slice of device.HistoryRepository the pruner needs.
type historyPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// runHistoryPruner deletes expired history once at startup and then daily
// until ctx is cancelled.
func runHistoryPruner(ctx context.Context, history historyPruner, retention time.Duration, log *logging.Logger) {
	prune := func() {
		n, err := history.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("history prune failed", "error", err)
			}
			return
		}
		if n > 0 {
			log.Info("history pruned", "deleted", n, "retention", retention.String())
		}
	}

	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
