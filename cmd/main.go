/**
 * @description
 * This is the main entry point for the token-service. It is responsible for
 * initializing all components of the service, including configuration,
 * database connection, the optional payment gateway client, message broker,
 * repository, the core lifecycle service, the expiry sweep scheduler, and the
 * HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/gatewayclient: Client for the remote payment-authorization gateway.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/transfa/token-service/internal/api"
	"github.com/transfa/token-service/internal/app"
	"github.com/transfa/token-service/internal/config"
	"github.com/transfa/token-service/internal/store"
	"github.com/transfa/token-service/pkg/gatewayclient"
	rmrabbit "github.com/transfa/token-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting token-service\" port=%s token_ttl=%s", cfg.ServerPort, cfg.TokenTTL())

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Apply the idempotent schema bootstrap.
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMigrate()
	if err := store.Migrate(migrateCtx, dbpool); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema bootstrap failed\" err=%v", err)
	}

	// Initialize the RabbitMQ producer to publish lifecycle events. The
	// service only publishes, so a fallback no-op producer keeps it booting
	// when the broker is unavailable.
	var rabbitProducer rmrabbit.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; using fallback producer\"")
		rabbitProducer = &rmrabbit.EventProducerFallback{}
	} else if producer, prodErr := rmrabbit.NewEventProducer(cfg.RabbitMQURL); prodErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", prodErr)
		rabbitProducer = &rmrabbit.EventProducerFallback{}
	} else {
		rabbitProducer = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}
	defer rabbitProducer.Close()

	// Select the payment authorizer: the remote gateway when configured,
	// otherwise the built-in stub that approves any positive amount.
	var authorizer app.PaymentAuthorizer
	if strings.TrimSpace(cfg.GatewayBaseURL) == "" {
		log.Println("level=info component=bootstrap msg=\"no gateway configured; using stub authorizer\"")
		authorizer = app.StubAuthorizer{}
	} else {
		authorizer = gatewayclient.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
		log.Printf("level=info component=bootstrap msg=\"payment gateway configured\" base_url=%s", cfg.GatewayBaseURL)
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core lifecycle service with its dependencies.
	tokenService := app.NewService(repository, authorizer, rabbitProducer, cfg.TokenTTL())

	// Optional Redis-backed redemption rate limiting; degrades open when
	// Redis is missing or unreachable.
	if cfg.UseRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; redemption rate limiting disabled\" env=REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; redemption rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; redemption rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				tokenService.SetRedemptionRateLimiter(
					app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
					cfg.UseRateLimitPerMinute,
				)
				log.Println("level=info component=bootstrap msg=\"redis connected; redemption rate limiting enabled\"")
			}
		}
	}

	// Start the expiry sweep scheduler.
	scheduler := app.NewScheduler(app.NewExpirySweeper(repository, rabbitProducer), cfg.ExpirySweepSchedule)
	scheduler.Start()

	// Initialize the API handlers and set up the HTTP router.
	tokenHandlers := api.NewTokenHandlers(tokenService)
	router := chi.NewRouter()
	router.Mount("/tokens", api.TokenRoutes(tokenHandlers, cfg.InternalAPIKey))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	// Let in-flight cron jobs finish before closing the pool.
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
