package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr  string // overrides server.http_addr
	Specs string // table definitions; required for postgres
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dataset pages over HTTP",
		Long: `Serve sorted, filtered pages of datasets over HTTP:

  GET /datasets/{name}/rows?page=&page_size=&sort=&dir=&filter=
  GET /healthz

server.database selects the backend: a SQLite path serves datasets loaded
with "tablegrid seed"; a postgres:// URL serves the tables named by --specs.
SIGINT and SIGTERM trigger a graceful shutdown bounded by
server.shutdown_timeout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, nil)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default: server.http_addr)")
	cmd.Flags().StringVar(&opts.Specs, "specs", "", "CUE table definitions (required for postgres)")

	return cmd
}

// runServe serves until ctx is done. A non-nil ready receives the bound
// address once the listener is open.
func runServe(ctx context.Context, opts *ServeOptions, ready chan<- string) error {
	cfg := opts.settings()

	var specs []table.Spec
	if opts.Specs != "" {
		result, errs := LoadSpecs(opts.Specs, LoadModeFailFast)
		if len(errs) > 0 {
			return WrapExitError(ExitCommandError, "failed to load specs", errs[0])
		}
		specs = result.Specs
	}
	if cfg.Server.IsPostgres() && len(specs) == 0 {
		return NewExitError(ExitCommandError, "--specs is required with a postgres database")
	}

	catalog, closeCatalog, err := openCatalog(ctx, cfg, specs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeCatalog()

	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.HTTPAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           remote.NewHandler(catalog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", ln.Addr().String(), "postgres", cfg.Server.IsPostgres())
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	slog.Info("server stopped")
	return nil
}
