package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-redis/redis/v8"
)

// Default external reference-data sources.
const (
	defaultItemsURL = "https://zombie-items-api.herokuapp.com/api/items"
	defaultRatesURL = "https://api.nbp.pl/api/exchangerates/tables/C/?format=json"
)

func main() {
	logger := log.New(os.Stdout, "zombiecrud ", log.LstdFlags|log.Lmicroseconds)
	ctx := context.Background()

	store := NewStore(newBackend(ctx, logger))
	if err := store.Connect(ctx); err != nil {
		logger.Fatalf("could not initialize store: %v", err)
	}

	itemsURL := envOr("ITEMS_URL", defaultItemsURL)
	ratesURL := envOr("RATES_URL", defaultRatesURL)
	fetchClient := &http.Client{Timeout: 10 * time.Second}
	refresher := NewRefresher(store, fetchClient, logger, itemsURL, ratesURL)

	handler := NewHandler(store, refresher, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/zombies", handler.zombiesHandler)
	mux.HandleFunc("/zombies/", handler.zombieHandler)

	var root http.Handler = mux
	// enable Bearer auth only when API_KEYS is configured
	if keys := os.Getenv("API_KEYS"); keys != "" {
		root = authMiddleware(parseAPIKeys(keys))(root)
	}
	root = loggingMiddleware(logger)(requestIDMiddleware()(root))

	server := &http.Server{
		Addr:         envOr("HTTP_ADDR", ":3000"),
		Handler:      root,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Printf("server is listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("could not listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Println("server is shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}

	logger.Println("server stopped")
}

// newBackend picks the document backend from STORE_BACKEND: a JSON file by
// default, or Redis when set to "redis".
func newBackend(ctx context.Context, logger *log.Logger) Backend {
	switch backend := envOr("STORE_BACKEND", "file"); backend {
	case "file":
		return NewFileBackend(envOr("STORE_FILE", "dbStore.json"))
	case "redis":
		redisAddr := envOr("REDIS_ADDR", "localhost:6379")
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("could not connect to redis (%s): %v", redisAddr, err)
		}
		return NewRedisBackend(redisClient)
	default:
		logger.Fatalf("unknown STORE_BACKEND %q (want file or redis)", backend)
		return nil
	}
}

// envOr returns the value of the environment variable, or a default.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
