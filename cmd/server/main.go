package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cassandra-chat/internal/api"
	"cassandra-chat/internal/config"
	"cassandra-chat/internal/database"
	"cassandra-chat/internal/migrations"
	"cassandra-chat/internal/server"
	"cassandra-chat/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	cassandraHosts stringSliceFlag
	keyspace       string
	consistency    string
	signingKey     string
	allowedOrigins stringSliceFlag
	runMigrations  bool
	memoryStore    bool
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("CHAT_ADDR", "localhost:8000"), "server address")
	flag.Var(&cassandraHosts, "cassandra-hosts", "comma-separated list of cassandra hosts")
	flag.StringVar(&keyspace, "keyspace", envOr("CHAT_KEYSPACE", "nosql_chat"), "cassandra keyspace")
	flag.StringVar(&consistency, "consistency", envOr("CHAT_CONSISTENCY", "quorum"), "cassandra consistency level")
	flag.StringVar(&signingKey, "signing-key", os.Getenv("CHAT_SIGNING_KEY"), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&runMigrations, "migrate", true, "apply schema migrations on startup")
	flag.BoolVar(&memoryStore, "memory", false, "use the in-memory store instead of cassandra (dev only)")
	flag.Parse()

	logger := log.New(os.Stderr, "[cassandra-chat] ", log.LstdFlags)

	if len(cassandraHosts) == 0 {
		cassandraHosts = strings.Split(envOr("CHAT_CASSANDRA_HOSTS", "localhost:9042"), ",")
	}

	cfg, err := config.NewConfig(addr, cassandraHosts, keyspace, consistency, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	var db database.ChatRepository
	if memoryStore {
		logger.Println("using in-memory store")
		db = database.NewMemoryChatRepository()
	} else {
		if runMigrations {
			url := fmt.Sprintf("cassandra://%s/%s?x-multi-statement=true", cfg.CassandraHosts[0], cfg.Keyspace)
			if err := migrations.Up(url); err != nil {
				logger.Fatal("migrations: ", err)
			}
		}

		repo, err := database.NewCassandraChatRepository(cfg.CassandraHosts, cfg.Keyspace, cfg.Consistency)
		if err != nil {
			logger.Fatal("cassandra connect: ", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Println("cassandra close: ", err)
			}
		}()
		db = repo
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.RegisterMetric(stats.ActiveConnections)
	statsUpdater.RegisterMetric(stats.AccountsCreated)
	statsUpdater.RegisterMetric(stats.RoomsCreated)
	statsUpdater.RegisterMetric(stats.MessagesPublished)

	chatServer, err := server.NewChatServer(logger, db, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server: ", err)
	}

	srv := api.NewChatApp(mux, logger, chatServer, db, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server: ", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown: ", err)
	}

	logger.Println("shutting down chat server...")
	chatServer.Shutdown()

	logger.Println("shutdown complete")
}
