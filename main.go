package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	alertrepo "github.com/dangdich07/fire-alert/internal/alerts/infrastructure/postgres"
	alerthttp "github.com/dangdich07/fire-alert/internal/alerts/interfaces/http"
	alertnotify "github.com/dangdich07/fire-alert/internal/alerts/notify"
	"github.com/dangdich07/fire-alert/internal/auth"
	deviceapp "github.com/dangdich07/fire-alert/internal/devices/application"
	devicerepo "github.com/dangdich07/fire-alert/internal/devices/infrastructure/postgres"
	devicehttp "github.com/dangdich07/fire-alert/internal/devices/interfaces/http"
	ingestapp "github.com/dangdich07/fire-alert/internal/ingest/application"
	ingesthttp "github.com/dangdich07/fire-alert/internal/ingest/interfaces/http"
	ingestmqtt "github.com/dangdich07/fire-alert/internal/ingest/interfaces/mqtt"
	"github.com/dangdich07/fire-alert/internal/observability/metrics"
	"github.com/dangdich07/fire-alert/internal/stream"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	alertingCfg, err := ingestapp.LoadConfig()
	if err != nil {
		logger.Fatalf("alerting config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	deviceRepo := devicerepo.NewDeviceRepository(db)
	alertRepo := alertrepo.NewAlertRepository(db)

	broker := stream.NewBroker()
	sinks := []alertapp.Notifier{broker}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("redis ping error: %v", err)
		}
		defer redisClient.Close()

		bridge := stream.NewRedisBridge(redisClient, broker, cfg.RedisChannel)
		sinks = append(sinks, bridge)
		go func() {
			if err := bridge.Run(context.Background()); err != nil && err != context.Canceled {
				logger.Printf("redis bridge stopped: %v", err)
			}
		}()
	}
	if alertingCfg.WebhookURL != "" {
		sinks = append(sinks, alertnotify.NewWebhook(alertingCfg.WebhookURL, alertingCfg.WebhookTimeout()))
	}
	notifier := alertnotify.NewMulti(sinks...)

	alertService, err := alertapp.NewService(alertRepo, deviceRepo, alertapp.WithNotifier(notifier))
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}
	deviceService, err := deviceapp.NewService(deviceRepo, alertService, deviceapp.WithSuppressWindow(alertingCfg.SuppressWindow()))
	if err != nil {
		logger.Fatalf("device service error: %v", err)
	}
	ingestService, err := ingestapp.NewService(deviceRepo, alertService)
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}

	alertHandler, err := alerthttp.NewHandler(alertService)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}
	deviceHandler, err := devicehttp.NewHandler(deviceService)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}
	ingestHandler, err := ingesthttp.NewHandler(ingestService)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	exportHandler := alerthttp.NewExportHandler(alertService)
	streamHandler := &stream.Handler{
		Broker:    broker,
		Alerts:    alertService,
		JWTSecret: []byte(cfg.JWTSecret),
		PingEvery: alertingCfg.PingInterval(),
	}

	if cfg.MQTTBroker != "" {
		consumer, err := ingestmqtt.NewConsumer(ingestmqtt.Options{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
		}, ingestService)
		if err != nil {
			logger.Fatalf("mqtt consumer error: %v", err)
		}
		defer consumer.Close()
	}

	policy := auth.NewPolicy([]string{"/", "/healthz", "/metrics", "/stream/alerts"}, []string{"/iot/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	deviceKey := auth.NewDeviceKeyMiddleware([]byte(cfg.IoTAPIKey))

	mux := http.NewServeMux()
	mux.Handle("/iot/event", deviceKey.Wrap(http.HandlerFunc(ingestHandler.HandleEvent)))
	mux.Handle("/iot/heartbeat", deviceKey.Wrap(http.HandlerFunc(ingestHandler.HandleHeartbeat)))
	mux.Handle("/devices", deviceHandler)
	mux.Handle("/devices/", deviceHandler)
	mux.Handle("/alerts", alertHandler)
	mux.Handle("/alerts/", alertHandler)
	mux.Handle("/api/v1/exports/alerts.csv", exportHandler)
	mux.Handle("/api/v1/exports/alerts.xlsx", exportHandler)
	mux.Handle("/api/v1/exports/alerts.pdf", exportHandler)
	mux.Handle("/stream/alerts", streamHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": "fire-alert",
			"status":  "running",
		})
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL   string
	HTTPAddr      string
	JWTSecret     string
	IoTAPIKey     string
	RedisAddr     string
	RedisPassword string
	RedisChannel  string
	MQTTBroker    string
	MQTTClientID  string
	MQTTUsername  string
	MQTTPassword  string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:   getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:     getenvDefault("JWT_SECRET", ""),
		IoTAPIKey:     getenvDefault("IOT_API_KEY", ""),
		RedisAddr:     getenvDefault("REDIS_ADDR", ""),
		RedisPassword: getenvDefault("REDIS_PASSWORD", ""),
		RedisChannel:  getenvDefault("REDIS_EVENT_CHANNEL", ""),
		MQTTBroker:    getenvDefault("MQTT_BROKER", ""),
		MQTTClientID:  getenvDefault("MQTT_CLIENT_ID", ""),
		MQTTUsername:  getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:  getenvDefault("MQTT_PASSWORD", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.IoTAPIKey == "" {
		log.Fatal("IOT_API_KEY is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
