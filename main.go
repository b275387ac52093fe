package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"flexflow-api/api"
	"flexflow-api/domain"
	"flexflow-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	usersTable := os.Getenv("USERS_TABLE")
	boardsTable := os.Getenv("BOARDS_TABLE")
	listsTable := os.Getenv("LISTS_TABLE")
	cardsTable := os.Getenv("CARDS_TABLE")
	if connStr == "" || usersTable == "" || boardsTable == "" || listsTable == "" || cardsTable == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, usersTable, boardsTable, listsTable, cardsTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var events domain.EventPublisher
	if queueName := os.Getenv("EVENTS_QUEUE"); queueName != "" {
		publisher, err := storage.NewEvents(connStr, queueName)
		if err != nil {
			log.Fatalf("events queue: %v", err)
		}
		events = publisher
	}

	var hierarchyStore domain.HierarchyStorage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		cacheTTL := 5 * time.Minute
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			cacheTTL = d
		}
		hierarchyStore = storage.NewCache(store, redis.NewClient(redisOptions(redisConn)), cacheTTL)
	}

	strict := true
	if v := os.Getenv("STRICT_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid STRICT_MODE: %v", err)
		}
		strict = b
	}

	bcryptCost := 0
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Fatalf("invalid BCRYPT_COST: %v", err)
		}
		bcryptCost = n
	}

	auth := buildAuth()

	users := domain.NewUserService(store, domain.PasswordHasher{Cost: bcryptCost}, events)
	boards := domain.NewHierarchyService(hierarchyStore, events, strict)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warnf("shutdown tracer provider: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.DecompressRequests())

	logger := log.New()
	api.Register(e, users, boards, auth, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// buildAuth selects local token issuance (HS256 with TOKEN_SECRET) or
// verify-only federated mode against a JWKS endpoint.
func buildAuth() *api.Auth {
	if domainName := os.Getenv("AUTH_DOMAIN"); domainName != "" {
		audience := os.Getenv("AUTH_AUDIENCE")
		if audience == "" {
			log.Fatal("missing AUTH_AUDIENCE for federated auth")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domainName)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		return api.NewExternalAuth(jwks, audience, "https://"+domainName+"/")
	}

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		log.Fatal("missing TOKEN_SECRET")
	}
	ttl := time.Duration(0)
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid TOKEN_TTL: %v", err)
		}
		ttl = d
	}
	return api.NewAuth([]byte(secret), ttl)
}

// redisOptions parses either a redis URL or the comma-separated
// host,password=...,ssl=... form used by managed cache connection strings.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
