package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nbinmostafa/project-management-tracker/internal/auth"
	"github.com/nbinmostafa/project-management-tracker/internal/config"
	"github.com/nbinmostafa/project-management-tracker/internal/gateway"
	"github.com/nbinmostafa/project-management-tracker/internal/handlers"
	"github.com/nbinmostafa/project-management-tracker/internal/resolver"
	"github.com/nbinmostafa/project-management-tracker/internal/store"
)

// App carries what every command shares. The resolver is created once here
// and handed to every session.
type App struct {
	ConfigPath string

	cfg      *config.Config
	log      *log.Logger
	client   *gateway.Client
	resolver *resolver.Resolver
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Project and task tracker",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", config.DefaultConfigFile, "Path to YAML config file")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newViewModeCmd(app))

	return cmd
}

func (a *App) setup() error {
	cfg, err := config.LoadFrom(a.ConfigPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log = log.New()
	a.log.SetLevel(cfg.Level())
	a.log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

// remote returns the API client signed in as the configured user, and the
// shared resolver backed by it.
func (a *App) remote() (*gateway.Client, *resolver.Resolver, error) {
	if a.client != nil {
		return a.client, a.resolver, nil
	}
	if a.cfg.User == "" {
		return nil, nil, errors.New("user is required (set TRACKER_USER or user in the config file)")
	}
	signer, err := auth.NewSigner(a.cfg.JWTSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	a.client = gateway.New(a.cfg.APIBaseURL,
		gateway.WithTokenProvider(gateway.SignedToken{Signer: signer, Subject: a.cfg.User}),
		gateway.WithTimeout(a.cfg.RequestTimeout),
		gateway.WithLogger(a.log),
	)
	a.resolver = resolver.New(a.client,
		resolver.WithTimeout(a.cfg.ResolverTimeout),
		resolver.WithLogger(a.log),
	)
	return a.client, a.resolver, nil
}

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serve(cmd.Context())
		},
	}
}

func (a *App) serve(ctx context.Context) error {
	cfg := a.cfg

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	sqlite, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer sqlite.Close()

	var s store.Store = sqlite
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			a.log.WithError(err).Warn("redis unavailable, project reads will go to sqlite")
		}
		cancel()

		s = store.NewCache(sqlite, rdb, cfg.CacheTTL)
	}

	h := handlers.New(s, verifier, a.log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", h.Health)
	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("Starting server on http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
