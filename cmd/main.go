package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/cardgate/infra/config"
	"github.com/mstgnz/cardgate/infra/logger"
	"github.com/mstgnz/cardgate/infra/middle"
	"github.com/mstgnz/cardgate/infra/opensearch"
	"github.com/mstgnz/cardgate/provider"
	"github.com/mstgnz/cardgate/router"

	// Import for side-effect registration
	_ "github.com/mstgnz/cardgate/provider/sandbox"
	_ "github.com/mstgnz/cardgate/provider/stripe"
)

func init() {
	// A missing .env is fine; the environment may already be set
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Load Env Error: %v", err)
	}
	_ = config.App()
}

func main() {
	cfg := config.GetAppConfig()

	var auditLogger *opensearch.AuditLogger
	if cfg.EnableLogging {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			auditLogger = opensearch.NewAuditLogger(osClient)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := osClient.EnsureIndices(ctx, provider.GetProviderNames()); err != nil {
				log.Printf("Failed to create OpenSearch indices: %v", err)
			}
			cancel()
		}
	}

	if auditLogger != nil {
		logger.InitGlobalLogger(auditLogger)
	} else {
		logger.InitGlobalLogger(nil)
	}

	opts := []provider.Option{provider.WithSigning(cfg.SigningConfig())}
	if auditLogger != nil {
		opts = append(opts, provider.WithAuditSink(auditLogger))
	}
	paymentService := provider.NewPaymentService(opts...)

	store, err := config.NewProviderStore(cfg.SQLitePath)
	if err != nil {
		logger.Fatal("Failed to open provider store", err)
	}
	defer store.Close()

	configureProviders(cfg, paymentService, store)

	if cfg.DefaultProvider != "" {
		if err := paymentService.SetDefaultProvider(cfg.DefaultProvider); err != nil {
			logger.Warn("Default provider is not configured", logger.LogContext{
				Provider: cfg.DefaultProvider,
				Fields:   map[string]any{"error": err.Error()},
			})
		}
	}

	var rateLimiter *middle.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = middle.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	r := chi.NewRouter()

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With", middle.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Length", middle.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300, // Preflight cache time (second)
	}))

	router.Routes(r, router.Options{
		PaymentService: paymentService,
		ConfigStore:    store,
		APIKey:         cfg.APIKey,
		RateLimiter:    rateLimiter,
		AuditEnabled:   auditLogger != nil,
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rateLimiter != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rateLimiter.Cleanup()
				}
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{
		"port":      cfg.Port,
		"providers": paymentService.ProviderNames(),
	}})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

// configureProviders registers the providers stored in SQLite, then the ones
// configured through the environment, which win on conflict.
func configureProviders(cfg *config.AppConfig, svc *provider.PaymentService, store *config.ProviderStore) {
	stored, err := store.LoadAll()
	if err != nil {
		logger.Error("Failed to load stored provider configurations", err)
	}
	environment := cfg.ProviderEnvironment()
	for _, sc := range stored {
		if sc.Environment != environment {
			continue
		}
		if err := svc.ConfigureProvider(sc.Provider, sc.Config); err != nil {
			logger.Error("Failed to configure stored provider", err, logger.LogContext{Provider: sc.Provider})
		}
	}

	if cfg.StripeSecretKey != "" {
		stripeEnv := "test"
		if cfg.IsProduction() {
			stripeEnv = "production"
		}
		err := svc.ConfigureProvider("stripe", map[string]string{
			"secretKey":     cfg.StripeSecretKey,
			"publicKey":     cfg.StripePublicKey,
			"webhookSecret": cfg.StripeWebhookSecret,
			"environment":   stripeEnv,
		})
		if err != nil {
			logger.Error("Failed to configure stripe", err, logger.LogContext{Provider: "stripe"})
		}
	}

	if !cfg.IsProduction() {
		err := svc.ConfigureProvider("sandbox", map[string]string{
			"webhookSecret": cfg.WebhookSigningConfig().SharedSecret,
			"environment":   "sandbox",
		})
		if err != nil {
			logger.Error("Failed to configure sandbox", err, logger.LogContext{Provider: "sandbox"})
		}
	}
}
