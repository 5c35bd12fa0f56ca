package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/internal/api"
	"github.com/CTAG07/cmarkov/internal/auth"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
	"github.com/CTAG07/cmarkov/pkg/templating"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the constrained model and corpus over HTTP",
		Long: "Train the constrained model and serve it over HTTP until SIGINT or SIGTERM.\n" +
			"Requests need a key from \"cmarkov keys create\" once one exists.",
		Args: cobra.NoArgs,
		Run:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: from config)")
	addModelFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	build := func(ctx context.Context) (*nhmm.Model, error) {
		return buildModel(ctx, s, cfg.Model, cfg.Generate.Seed, logger)
	}

	// An empty corpus is not fatal: the model can be reloaded after training.
	model, err := build(cmd.Context())
	if err != nil {
		logger.Warn("Starting with an untrained model", "error", err)
		model = nhmm.New(nil, nhmm.WithLogger(logger))
	}

	keys, err := auth.NewKeyStore(db)
	if err != nil {
		exitErr("open keys", err)
	}
	defer keys.Close()
	keys.SetLogger(logger)

	tm, err := templating.NewManager(cfg.Render.Dir, logger)
	if err != nil {
		exitErr("load templates", err)
	}

	mux := http.NewServeMux()
	models := api.NewModelAPI(model, build, s.Tokenizer(), cfg.Server.MaxGenerate, logger)
	models.RegisterRoutes(mux)
	api.NewCorpusAPI(s, logger).RegisterRoutes(mux)
	api.NewTemplateAPI(tm, models, logger).RegisterRoutes(mux)
	authAPI := api.NewAuthAPI(keys, logger)
	authAPI.RegisterRoutes(mux)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: authAPI.Authenticate(mux)}
	if err = serve(cmd.Context(), srv); err != nil {
		exitErr("serve", err)
	}
}

// serve runs srv until ctx is done or the process receives SIGINT or SIGTERM,
// then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", "address", srv.Addr)
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

	logger.Info("Stopping API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("API server stopped.")
	return nil
}
