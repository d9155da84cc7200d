// cmd/genie-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rental-genie/internal/common/config"
	"rental-genie/internal/common/database"
	"rental-genie/internal/common/logger"
	"rental-genie/internal/common/observability"
	"rental-genie/internal/extractor"
	"rental-genie/internal/genai"
	"rental-genie/internal/notify"
	"rental-genie/internal/orchestrator"
	"rental-genie/internal/store"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting genie server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	repo, cleanup, err := buildRepository(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("repository initialization failed", zap.Error(err))
	}
	defer cleanup()

	extractionCap, replyCap := buildCapabilities(cfg, log)
	notifier := buildNotifier(ctx, cfg, log, zapLog)

	sessions := store.New(repo, log)
	defer sessions.Flush()

	ex := extractor.New(extractionCap, extractor.Config{
		ConfidenceThreshold: cfg.Conversation.ConfidenceThreshold,
		RecentTurnWindow:    cfg.Conversation.RecentTurnWindow,
	}, log)

	o := orchestrator.New(sessions, ex, replyCap, notifier, obs, log, orchestrator.Config{
		RecentTurnWindow:            cfg.Conversation.RecentTurnWindow,
		MissingFieldPromptThreshold: cfg.Conversation.MissingFieldPromptThreshold,
	})

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: newAPIHandler(o, log),
	}
	go func() {
		zapLog.Info("api listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("api server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("api shutdown failed", zap.Error(err))
	}
	sessions.Flush()
	zapLog.Info("Shutdown complete")
}

// buildRepository selects the profile repository backend. "none" keeps
// profiles purely in memory.
func buildRepository(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (store.Repository, func(), error) {
	switch cfg.Database.Backend {
	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL initialization")
		if err != nil {
			return nil, func() {}, err
		}
		return store.NewPostgresRepository(pg.DB), func() { pg.Close() }, nil

	case "redis":
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis initialization")
		if err != nil {
			return nil, func() {}, err
		}
		return store.NewRedisRepository(rc.Client, 0), func() { rc.Close() }, nil

	case "none":
		zapLog.Warn("running without a profile repository, profiles are in-memory only")
		return nil, func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
}

// buildCapabilities returns the extraction and reply capabilities for the
// configured provider. Extraction may be nil, in which case the rule-based
// extractor carries every turn.
func buildCapabilities(cfg *config.Config, log logger.Logger) (genai.ExtractionCapability, genai.ReplyCapability) {
	switch cfg.GenAI.Provider {
	case "openai":
		client := genai.NewOpenAIClient(&genai.OpenAIConfig{
			APIKey:      cfg.GenAI.APIKey,
			Model:       cfg.GenAI.Model,
			Temperature: cfg.GenAI.Temperature,
			Timeout:     time.Duration(cfg.GenAI.Timeout) * time.Millisecond,
		}, log)
		return client, client
	default:
		client := genai.NewClient(&genai.Config{
			BaseURL:    cfg.GenAI.BaseURL,
			APIKey:     cfg.GenAI.APIKey,
			Timeout:    time.Duration(cfg.GenAI.Timeout) * time.Millisecond,
			MaxRetries: cfg.GenAI.MaxRetries,
		}, log)
		return client, client
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.NewLogNotifier(log)
	}

	publisher, err := notify.NewSNSPublisher(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Error("sns client init failed, falling back to log notifier", zap.Error(err))
		return notify.NewLogNotifier(log)
	}

	var sender notify.EmailSender
	if cfg.Notifications.AWS.SES.Enabled {
		sesSender, err := notify.NewSESSender(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Error("ses client init failed, handoff emails disabled", zap.Error(err))
		} else {
			sender = sesSender
		}
	}

	return notify.NewSNSNotifier(publisher, sender, notify.SNSConfig{
		TopicARN:     cfg.Notifications.AWS.TopicARN,
		EmailEnabled: cfg.Notifications.AWS.SES.Enabled,
		FromEmail:    cfg.Notifications.AWS.SES.FromEmail,
		ToEmail:      cfg.Notifications.AWS.SES.ToEmail,
	}, log)
}

// --- HTTP API ---

type chatRequest struct {
	Message         string `json:"message"`
	SessionID       string `json:"session_id"`
	PropertyContext string `json:"property_context,omitempty"`
	PromptVariant   string `json:"prompt_variant,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func newAPIHandler(o *orchestrator.Orchestrator, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Message == "" || req.SessionID == "" {
			http.Error(w, "message and session_id are required", http.StatusBadRequest)
			return
		}
		if req.PromptVariant == "" {
			req.PromptVariant = genai.PromptVariants[0]
		}

		reply := o.HandleMessage(r.Context(), req.Message, req.PropertyContext, req.SessionID, req.PromptVariant)
		writeJSON(w, log, chatResponse{Reply: reply})
	})

	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		sessionID = strings.TrimSuffix(sessionID, "/status")
		if sessionID == "" {
			http.Error(w, "session id required", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			writeJSON(w, log, o.GetProfileStatus(r.Context(), sessionID))
		case http.MethodDelete:
			if err := o.ClearSession(r.Context(), sessionID); err != nil {
				http.Error(w, "failed to clear session", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}

func writeJSON(w http.ResponseWriter, log logger.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("response encoding failed", nil)
	}
}
