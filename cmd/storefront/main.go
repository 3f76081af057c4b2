package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cartcache "github.com/Ahmedbennaya/fini-storefront/internal/cart/cache"
	cartrepo "github.com/Ahmedbennaya/fini-storefront/internal/cart/repository"
	cartstore "github.com/Ahmedbennaya/fini-storefront/internal/cart/store"
	catalogrepo "github.com/Ahmedbennaya/fini-storefront/internal/catalog/repository"
	checkout "github.com/Ahmedbennaya/fini-storefront/internal/checkout/service"
	"github.com/Ahmedbennaya/fini-storefront/internal/events"
	"github.com/Ahmedbennaya/fini-storefront/internal/httpapi"
	orderrepo "github.com/Ahmedbennaya/fini-storefront/internal/order/repository"
	"github.com/Ahmedbennaya/fini-storefront/internal/payment"
	"github.com/Ahmedbennaya/fini-storefront/internal/profile"
	"github.com/Ahmedbennaya/fini-storefront/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	OrdersMigrations string

	CatalogDBPath     string
	CatalogMigrations string

	MongoURI      string
	MongoDatabase string

	RedisAddr string

	KafkaBrokers []string

	PaymentGatewayURL string
	PaymentGatewayKey string

	AdminToken string
}

func loadConfig() *Config {
	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		pgPort = 5432
	}
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresUser:     getEnv("POSTGRES_USER", "storefront"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "storefront"),
		PostgresDB:       getEnv("POSTGRES_DB", "storefront"),
		OrdersMigrations: getEnv("ORDERS_MIGRATIONS_PATH", "migrations/orders"),

		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrations: getEnv("CATALOG_MIGRATIONS_PATH", "migrations/catalog"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		PaymentGatewayURL: getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9400"),
		PaymentGatewayKey: getEnv("PAYMENT_GATEWAY_KEY", ""),

		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	telemetry.InitLogger()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, "fini-storefront")
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	// Orders / addresses (postgres)
	cred := &orderrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.OrdersMigrations,
	}
	orders, err := orderrepo.NewRepository(cred)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer orders.Close()

	if err := orders.RunMigrations(cred); err != nil {
		slog.Error("failed to run order migrations", "error", err)
		os.Exit(1)
	}
	addresses := profile.NewRepository(orders.DB())

	// Catalog (sqlite)
	catalog, err := catalogrepo.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		slog.Error("failed to open catalog database", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	if err := catalog.RunMigrations(cfg.CatalogMigrations); err != nil {
		slog.Error("failed to run catalog migrations", "error", err)
		os.Exit(1)
	}

	// Cart (mongo + redis)
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		slog.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())

	cartCollection := mongoClient.Database(cfg.MongoDatabase).Collection("carts")
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	carts := cartstore.NewStore(
		cartrepo.NewMongoRepository(cartCollection),
		cartcache.NewRedisCache(redisClient),
		catalog,
	)

	// Checkout
	gateway := payment.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayKey)
	checkoutService := checkout.NewCheckoutService(orders, carts, addresses, gateway)

	// Outbox publisher
	poller := events.NewPoller(orders, cfg.KafkaBrokers...)
	go poller.Run(ctx)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Cart:       httpapi.NewCartHandler(carts, cfg.RequestTimeout),
		Checkout:   httpapi.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Orders:     httpapi.NewOrdersHandler(orders, cfg.RequestTimeout),
		Products:   httpapi.NewProductHandler(catalog, cfg.RequestTimeout),
		AdminToken: cfg.AdminToken,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := poller.Close(); err != nil {
		slog.Error("failed to close event publisher", "error", err)
	}

	slog.Info("server exited")
}
