// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"corrtrack-notifier/internal/channels"
	"corrtrack-notifier/internal/common/config"
	"corrtrack-notifier/internal/common/database"
	"corrtrack-notifier/internal/common/logger"
	"corrtrack-notifier/internal/common/observability"
	"corrtrack-notifier/internal/models"
	"corrtrack-notifier/internal/notify/dedup"
	"corrtrack-notifier/internal/notify/dispatch"
	"corrtrack-notifier/internal/notify/preferences"
	"corrtrack-notifier/internal/notify/recipients"
	"corrtrack-notifier/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification dispatcher...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("notifier")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Postgres with retry ---
	var pgClient *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pgClient, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pgClient.Ping(pingCtx)
	}, 10, 2*time.Second, zapLog, "Postgres initialization")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pgClient.Close()

	// --- Redis (best effort: dedup falls back to the store without it) ---
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Warn("redis init failed, dedup will use store lookups", zap.Error(err))
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx); err != nil {
			zapLog.Warn("redis unreachable, dedup will use store lookups", zap.Error(err))
		}
		cancel()
		defer redisClient.Close()
	}

	db := pgClient.GetDB()
	userStore := store.NewUserStore(db)
	prefStore := store.NewPreferenceStore(db)
	subStore := store.NewSubscriptionStore(db)
	notifStore := store.NewNotificationStore(db)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	subStore.Probe(probeCtx)
	cancel()
	if !subStore.Available() {
		zapLog.Warn("subscriptions table not provisioned, subscription matching disabled")
	}

	// --- Channel adapters ---
	senders := make(map[models.Channel]channels.Sender)
	if cfg.Notifications.Email.Enabled {
		emailSender, err := channels.NewEmailSender(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("email sender init failed", zap.Error(err))
		}
		senders[models.ChannelEmail] = emailSender
	}
	if cfg.Notifications.SMS.Enabled {
		smsSender, err := channels.NewSMSSender(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sms sender init failed", zap.Error(err))
		}
		senders[models.ChannelSMS] = smsSender
	}
	if cfg.Notifications.Chat.Enabled {
		senders[models.ChannelChat] = channels.NewChatSender(cfg.Notifications.Chat.BotToken, cfg.Notifications.Chat.BaseURL)
	}

	// --- Engine ---
	prefResolver := preferences.NewResolver(prefStore, subStore, log)
	recipientResolver := recipients.NewResolver(subStore, userStore, log)

	var guard *dedup.Guard
	if redisClient != nil {
		guard = dedup.NewGuard(redisClient.GetClient(), notifStore, log)
	} else {
		guard = dedup.NewGuard(nil, notifStore, log)
	}

	orchestrator := dispatch.NewOrchestrator(
		dispatch.Config{
			DedupWindow: time.Duration(cfg.Notifications.Dedup.WindowMinutes) * time.Minute,
			SendTimeout: config.GetDuration(cfg.Notifications.SendTimeout),
		},
		userStore,
		prefResolver,
		recipientResolver,
		guard,
		notifStore,
		senders,
		log,
	)

	// --- HTTP surface: dispatch endpoint, health, metrics ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pgClient.Ping(pingCtx); err != nil {
			http.Error(w, "postgres unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/dispatch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var input dispatch.Input
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}

		// Dispatch runs to completion, bounded by per-send timeouts;
		// it is not cancelled when the caller disconnects.
		started := time.Now()
		result, err := orchestrator.Dispatch(context.WithoutCancel(r.Context()), &input)
		if err != nil {
			obs.RecordDispatch(r.Context(), string(input.Event), "error")
			obs.RecordDispatchDuration(r.Context(), time.Since(started), "error")
			log.Error("dispatch failed", map[string]interface{}{
				"event": string(input.Event),
				"error": err.Error(),
			})
			http.Error(w, "dispatch failed", http.StatusInternalServerError)
			return
		}
		obs.RecordDispatch(r.Context(), string(input.Event), "ok")
		obs.RecordDispatchDuration(r.Context(), time.Since(started), "ok")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
}
