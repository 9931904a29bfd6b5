package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/printdesk/printdesk/libs/config"
	"github.com/printdesk/printdesk/libs/db"
	"github.com/printdesk/printdesk/libs/httpx"
	"github.com/printdesk/printdesk/libs/kafkax"
	otelx "github.com/printdesk/printdesk/libs/otel"
	"github.com/printdesk/printdesk/libs/runtime"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/consumer"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/handlers"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/inbox"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/outbox"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/roster"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8086")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	scheduleRepo := storage.NewScheduleRepository(pool)
	rosterRepo := storage.NewRosterRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	rosterProvider, err := roster.NewProvider(config.String("PEOPLE_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("roster provider init failed; using db snapshot", "err", err)
		rosterProvider = nil
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	startRosterSync(ctx, pool, rosterRepo, inboxRepo, logger)

	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, rosterRepo, outboxRepo, rosterProvider, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/schedule/conflicts", scheduleHandler.Conflicts)
	mux.HandleFunc("/api/v1/schedule/events", routeByMethod(scheduleHandler.ListEvents, scheduleHandler.CreateEvent))
	mux.HandleFunc("/api/v1/schedule/events/update", scheduleHandler.UpdateEvent)
	mux.HandleFunc("/api/v1/schedule/slots", scheduleHandler.Slots)
	mux.HandleFunc("/api/v1/schedule/suggestions", scheduleHandler.Suggestions)
	mux.HandleFunc("/api/v1/schedule/suggestions/accept", scheduleHandler.AcceptSuggestion)
	mux.HandleFunc("/api/v1/schedule/time-options", scheduleHandler.TimeOptions)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
		rateLimitMiddleware(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// startRosterSync consumes people-service staff events and applies them to the
// local roster tables, deduplicated through the inbox.
func startRosterSync(ctx context.Context, pool *db.Pool, rosterRepo *storage.RosterRepository, inboxRepo *inbox.Repository, logger *slog.Logger) {
	topic := config.String("KAFKA_CONSUME_TOPIC", "people.staff.updated.v1")
	if strings.TrimSpace(topic) == "" {
		return
	}

	cfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
		Topic:   topic,
	}
	eventConsumer := consumer.New(logger, inboxRepo, cfg, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			StaffID string   `json:"staff_id"`
			Name    string   `json:"name"`
			Role    string   `json:"role"`
			Skills  []string `json:"skills"`
			Active  bool     `json:"active"`
			Hours   []struct {
				Weekday     int  `json:"weekday"`
				IsWorking   bool `json:"is_working"`
				StartMinute int  `json:"start_minute"`
				EndMinute   int  `json:"end_minute"`
			} `json:"working_hours"`
			Blocked []struct {
				Date        string `json:"date"`
				StartMinute int    `json:"start_minute"`
				EndMinute   int    `json:"end_minute"`
				Reason      string `json:"reason"`
			} `json:"blocked_times"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid staff event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.StaffID == "" || payload.Name == "" {
			logger.Error("missing required staff event fields", "topic", msg.Topic)
			return nil
		}

		rec := storage.StaffRecord{
			ID:     payload.StaffID,
			Name:   payload.Name,
			Role:   payload.Role,
			Skills: payload.Skills,
			Active: payload.Active,
		}
		for _, h := range payload.Hours {
			rec.Hours = append(rec.Hours, storage.WorkingHoursRecord{
				Weekday:     h.Weekday,
				IsWorking:   h.IsWorking,
				StartMinute: h.StartMinute,
				EndMinute:   h.EndMinute,
			})
		}
		for _, b := range payload.Blocked {
			rec.Blocked = append(rec.Blocked, storage.BlockedTimeRecord{
				Date:        b.Date,
				StartMinute: b.StartMinute,
				EndMinute:   b.EndMinute,
				Reason:      b.Reason,
			})
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := rosterRepo.SyncStaff(ctx, tx, rec); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go eventConsumer.Run(ctx)
}

// routeByMethod splits GET and POST on a shared path.
func routeByMethod(get, post http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodPost:
			post(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// rateLimitMiddleware prefers the shared Redis limiter when REDIS_ADDR is
// configured and falls back to the per-instance in-memory one.
func rateLimitMiddleware(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "scheduling").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
