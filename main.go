package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/seamanship/internal/bot"
	"github.com/example/seamanship/internal/config"
	"github.com/example/seamanship/internal/database"
	"github.com/example/seamanship/internal/excel"
	"github.com/example/seamanship/internal/httpapi"
	"github.com/example/seamanship/internal/progress"
	"github.com/example/seamanship/internal/scheduler"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	mode := pflag.String("mode", "serve", "run mode: serve, bot, import or migrate")
	file := pflag.String("file", "", "spreadsheet to import in import mode")
	addr := pflag.String("addr", "", "HTTP listen address, overrides config")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	if *mode == "migrate" || cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Database schema is up to date")
	}
	if *mode == "migrate" {
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	service := progress.NewService(database.NewGateway(db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		err = runServer(ctx, cfg, service)
	case "bot":
		err = runBot(ctx, cfg, service)
	case "import":
		err = runImport(ctx, *file, service)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func startScheduler(cfg config.Config, service *progress.Service, reporters ...scheduler.Reporter) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	reporters = append([]scheduler.Reporter{scheduler.LogReporter}, reporters...)
	s := scheduler.New(service, cfg.Scheduler.LeaderboardSize, reporters...)
	if err := s.Start(cfg.Scheduler.LeaderboardInterval); err != nil {
		log.Printf("Failed to start scheduler: %v", err)
		return nil
	}
	log.Printf("Scheduler started, leaderboard every %s", cfg.Scheduler.LeaderboardInterval)
	return s
}

func runServer(ctx context.Context, cfg config.Config, service *progress.Service) error {
	key := []byte(cfg.HTTP.SessionKey)
	if len(key) == 0 {
		log.Println("SESSION_KEY is not set, learner sessions will not survive a restart")
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate session key: %w", err)
		}
	}

	if s := startScheduler(cfg, service); s != nil {
		defer s.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(service, httpapi.NewCookieStore(key, cfg.HTTP.SecureCookie)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server started on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	log.Println("HTTP server stopped")
	return nil
}

func runBot(ctx context.Context, cfg config.Config, service *progress.Service) error {
	b, err := bot.New(cfg.Telegram.Token, service, cfg.Telegram.AdminChatIDs)
	if err != nil {
		return err
	}

	if s := startScheduler(cfg, service, b); s != nil {
		defer s.Stop()
	}

	log.Println("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot error: %w", err)
	}
	log.Println("Bot stopped successfully")
	return nil
}

func runImport(ctx context.Context, path string, service *progress.Service) error {
	if path == "" {
		return errors.New("--file is required in import mode")
	}

	importCfg := excel.DefaultImportConfig()
	importCfg.FilePath = path

	result, err := excel.ImportEvents(ctx, importCfg, service)
	if result != nil {
		log.Printf("Import finished: processed %d, completed %d, points awarded %d (+%d), skipped %d, errors %d",
			result.TotalProcessed, result.Completed, result.PointsAwarded, result.PointsTotal, result.Skipped, len(result.Errors))
		for _, e := range result.Errors {
			log.Printf("  %s", e)
		}
	}
	return err
}
