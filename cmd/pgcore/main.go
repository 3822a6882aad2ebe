// pgcore - PostgreSQL access core
//
// This is the main entry point. It loads configuration, opens the
// connection pool, defines the access and audit tables, synchronises the
// schema and serves the administration API until interrupted.
//
// Usage:
//
//	pgcore                      run the server
//	pgcore token <role> <user>  print a signed access token
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nerrad567/pgcore/internal/access"
	"github.com/nerrad567/pgcore/internal/api"
	"github.com/nerrad567/pgcore/internal/audit"
	"github.com/nerrad567/pgcore/internal/infrastructure/config"
	"github.com/nerrad567/pgcore/internal/infrastructure/database"
	"github.com/nerrad567/pgcore/internal/infrastructure/influxdb"
	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
	"github.com/nerrad567/pgcore/internal/infrastructure/mqtt"
	"github.com/nerrad567/pgcore/seeds"
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

// errUsage is returned for malformed command lines.
var errUsage = errors.New("usage: pgcore [token <role> <user>]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch {
	case len(os.Args) == 1:
		err = run(ctx)
	case os.Args[1] == "token":
		err = token(os.Args[2:])
	default:
		err = errUsage
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the server lifecycle, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting pgcore",
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

	db, err := database.Open(ctx, databaseConfig(cfg.Database), log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		db.Close()
	}()
	log.Info("database connected", "stats", db.Stats())

	store, err := access.Define(db, log)
	if err != nil {
		return fmt.Errorf("defining access tables: %w", err)
	}
	auditRepo, err := audit.Define(db)
	if err != nil {
		return fmt.Errorf("defining audit table: %w", err)
	}

	var events *mqtt.Client
	if cfg.MQTT.Enabled {
		events, err = connectMQTT(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := events.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	var metrics *influxdb.Client
	if cfg.InfluxDB.Enabled {
		metrics, err = connectInfluxDB(cfg.InfluxDB, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := metrics.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	syncStart := time.Now()
	syncErr := syncSchema(ctx, db, cfg.Sync, log)
	if events != nil {
		publishSync(events, cfg.Sync, syncErr, log)
	}
	if metrics != nil {
		recordSync(metrics, cfg.Database.Name, cfg.Sync, syncStatements(db, cfg.Sync), time.Since(syncStart), syncErr)
	}
	if syncErr != nil {
		return syncErr
	}

	var auditLog api.AuditLog = auditRepo
	if events != nil {
		auditLog = auditRepo.MirrorTo(auditPublisher{client: events}, log)
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log,
		DB:       db,
		Access:   store,
		Audit:    auditLog,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if metrics != nil {
		interval := time.Duration(cfg.InfluxDB.StatsInterval) * time.Second
		go influxdb.ReportPoolStats(ctx, metrics, cfg.Database.Name, interval, db.Stats)
	}

	log.Info("pgcore ready")
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// syncSchema verifies or rebuilds the defined tables. Seeds run inside
// the rebuild transaction when enabled.
func syncSchema(ctx context.Context, db *database.DB, cfg config.SyncConfig, log *logging.Logger) error {
	opts := database.SyncOptions{Alter: cfg.Alter}

	if cfg.Seeds {
		loaded, err := seeds.Load()
		if err != nil {
			return fmt.Errorf("loading seeds: %w", err)
		}
		opts.OnSuccessAlter = db.ApplySeeds(loaded)
		log.Info("seeds loaded", "count", len(loaded))
	}

	if err := db.Sync(ctx, opts); err != nil {
		return fmt.Errorf("synchronising schema: %w", err)
	}
	log.Info("schema synchronised", "alter", cfg.Alter, "schemas", db.Script().Schemas())
	return nil
}

// connectMQTT connects the event publisher and logs connection changes.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB connects the pool statistics exporter.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Warn("InfluxDB write failed", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return client, nil
}

// syncEvent is the payload published after a schema sync.
type syncEvent struct {
	Alter     bool      `json:"alter"`
	Seeds     bool      `json:"seeds"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// publishSync reports the sync result. Publish failures are logged only.
func publishSync(client *mqtt.Client, cfg config.SyncConfig, syncErr error, log *logging.Logger) {
	event := syncEvent{
		Alter:     cfg.Alter,
		Seeds:     cfg.Seeds,
		Success:   syncErr == nil,
		Timestamp: time.Now().UTC(),
	}
	if syncErr != nil {
		event.Error = syncErr.Error()
	}
	if err := client.PublishJSON(client.Topics().Sync(), event); err != nil {
		log.Warn("publishing sync result failed", "error", err)
	}
}

// syncMeasurement is the InfluxDB measurement of sync results.
const syncMeasurement = "pgcore_sync"

// pointWriter is the part of the InfluxDB client recordSync needs.
type pointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// syncStatements counts the statements a sync runs: the DDL plan when
// altering, the table probes otherwise.
func syncStatements(db *database.DB, cfg config.SyncConfig) int {
	if cfg.Alter {
		return len(db.Script().Plan())
	}
	return len(db.Script().Probes())
}

// recordSync writes one sync result point.
func recordSync(w pointWriter, dbName string, cfg config.SyncConfig, statements int, elapsed time.Duration, syncErr error) {
	w.WritePoint(syncMeasurement,
		map[string]string{
			"database": dbName,
			"alter":    strconv.FormatBool(cfg.Alter),
		},
		map[string]interface{}{
			"success":     syncErr == nil,
			"statements":  statements,
			"seeds":       cfg.Seeds,
			"duration_ms": elapsed.Milliseconds(),
		},
	)
}

// auditPublisher mirrors audit entries to MQTT.
type auditPublisher struct {
	client *mqtt.Client
}

func (p auditPublisher) Publish(_ context.Context, e *audit.Entry) error {
	return p.client.PublishJSON(p.client.Topics().Audit(e.EntityType, e.Action), e)
}

// token prints a signed access token for a role and user.
func token(args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	subject := access.Subject{Role: args[0], UserID: args[1]}
	ttl := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute

	signed, err := access.IssueToken(subject, cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Println(signed)
	return nil
}

// databaseConfig converts the YAML database section, whose lifetimes are
// in seconds, into database.Config.
func databaseConfig(c config.DatabaseConfig) database.Config {
	return database.Config{
		URL:             c.URL,
		Host:            c.Host,
		Port:            c.Port,
		Name:            c.Name,
		User:            c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: time.Duration(c.MaxConnLifetime) * time.Second,
		MaxConnIdleTime: time.Duration(c.MaxConnIdleTime) * time.Second,
		ConnectTimeout:  time.Duration(c.ConnectTimeout) * time.Second,
		ShowQuery:       c.ShowQuery,
	}
}

// getConfigPath returns the configuration file path.
// Uses PGCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PGCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
