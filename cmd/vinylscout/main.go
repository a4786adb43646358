package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vinylscout/vinylscout/pkg/cache"
	"github.com/vinylscout/vinylscout/pkg/client"
	"github.com/vinylscout/vinylscout/pkg/enrich"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/marketplace"
	"github.com/vinylscout/vinylscout/pkg/pipeline"
	"github.com/vinylscout/vinylscout/pkg/ratelimit"
	"github.com/vinylscout/vinylscout/pkg/sampler"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(logging.FromEnv())

	token := os.Getenv("MARKETPLACE_TOKEN")
	if token == "" {
		logger.Fatal().Msg("MARKETPLACE_TOKEN is required")
	}

	port := getEnv("PORT", "8080")
	baseURL := getEnv("MARKETPLACE_BASE_URL", "https://api.discogs.com")

	// Marketplace client
	clientCfg := client.DefaultConfig(token)
	clientCfg.BaseURL = baseURL
	api := marketplace.New(client.New(clientCfg))

	// Server cache tier: Redis when configured, process memory otherwise.
	var store cache.Store = cache.NewMemoryStore()
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", redisURL).Msg("Using Redis result cache")
		store = cache.NewRedisStore(redisClient)
	}

	// Pacing: sequential when requested, chunked-parallel by default.
	var policy ratelimit.Policy = ratelimit.DefaultChunkedParallel()
	if getEnv("PACING", "") == "sequential" {
		policy = &ratelimit.SequentialPaced{Delay: 500 * time.Millisecond}
	}

	service := pipeline.New(
		sampler.New(api),
		enrich.NewCoordinator(enrich.New(api), policy),
		store,
		cache.NewFallbackStore(0),
		pipeline.DefaultConfig(),
	)

	router := mux.NewRouter()
	pipeline.NewHandler(service).RegisterRoutes(router)
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Serve until interrupted, then drain.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Starting vinylscout server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
