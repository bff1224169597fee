// Command riskd serves the Nabahah transaction risk scoring API.
//
// At startup it generates the synthetic training set, fits the random forest
// and only then starts listening; the fitted model is shared read-only by
// every request.
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

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nabahah/riskscore/internal/assessment"
	"github.com/nabahah/riskscore/internal/config"
	"github.com/nabahah/riskscore/internal/handler"
	"github.com/nabahah/riskscore/internal/risk"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configFile, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskd: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskd: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskd: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("riskd exited with error", zap.Error(err))
	}
}

// parseFlags returns the --config path; every other setting comes from
// config.Load.
func parseFlags(args []string) (string, error) {
	fs := pflag.NewFlagSet("riskd", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "path to riskd.yaml (default: configs/riskd.yaml or ./riskd.yaml)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *configFile, nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Model ────────────────────────────────────────────────────────────────
	model, err := risk.Train(ctx, cfg.Training, cfg.Model, logger)
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}
	handler.RecordModel(model.Info())

	// ── Assessment storage ───────────────────────────────────────────────────
	var store assessment.Store
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		store = assessment.NewPostgresStore(db, logger)
		logger.Info("assessment storage: postgres")

	case config.StorageMemory:
		store = assessment.NewMemoryStore(cfg.Storage.MemoryCapacity)
		logger.Info("assessment storage: memory", zap.Int("capacity", cfg.Storage.MemoryCapacity))

	default:
		logger.Info("assessment storage: disabled")
	}

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	riskHandler := handler.NewRiskHandler(risk.NewScorer(model), model, store, logger)
	assessmentHandler := handler.NewAssessmentHandler(store, logger)
	router := handler.NewRouter(ctx, handler.RouterConfig{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimitRPS,
		StaticDir:    cfg.Server.StaticDir,
	}, riskHandler, assessmentHandler, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("riskd HTTP listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("static_dir", cfg.Server.StaticDir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down riskd...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("riskd stopped")
	return nil
}
