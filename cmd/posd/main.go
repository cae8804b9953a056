package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/services/menu"
	"restaurant-pos/internal/services/orders"
	"restaurant-pos/internal/services/terminal"
	"restaurant-pos/internal/store"
)

func main() {
	var (
		port           = flag.Int("port", 0, "HTTP port (overrides HTTP_PORT)")
		migrationsPath = flag.String("migrations", "migrations", "Path to SQL migration files")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port == 0 {
		*port = cfg.HTTP.Port
	}

	log := logger.New("pos-terminal")
	requestID := logger.NewRequestID()

	log.Info("service_started", requestID, "Starting POS terminal", map[string]interface{}{
		"port": *port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", requestID, "Received shutdown signal", nil)
		cancel()
	}()

	if err := run(ctx, cfg, log, *port, *migrationsPath); err != nil {
		log.Error("service_failed", requestID, "POS terminal failed", err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", requestID, "Service stopped gracefully", nil)
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, port int, migrationsPath string) error {
	requestID := logger.NewRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", requestID, "Connected to PostgreSQL database", nil)

	if err := db.RunMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", requestID, "Connected to RabbitMQ", nil)

	notifier := messaging.NewNotifier(conn, log)
	bus := changeBus{messaging.NewSubscriber(conn, log)}
	st := store.New(db, notifier, log)

	menuReader := menu.NewReader(st, bus, log)
	if err := menuReader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start menu reader: %w", err)
	}
	defer menuReader.Close()

	ordersReader := orders.NewReader(st, bus, log)
	if err := ordersReader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orders reader: %w", err)
	}
	defer ordersReader.Close()

	submitter := orders.NewService(st, ordersReader, log)
	handler := terminal.NewHandler(menuReader, ordersReader, submitter, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.SetupRoutes(),
	}

	go func() {
		log.Info("http_started", requestID, fmt.Sprintf("POS terminal listening on port %d", port), map[string]interface{}{
			"port": port,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", requestID, "HTTP server failed", err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// changeBus adapts the messaging subscriber to the readers' narrow
// subscribe interfaces.
type changeBus struct {
	sub *messaging.Subscriber
}

func (b changeBus) Subscribe(table, event string, handler func()) (io.Closer, error) {
	return b.sub.Subscribe(table, event, handler)
}
