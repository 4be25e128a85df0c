package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/handler"
	"github.com/BuzzLyutic/flowtrack/internal/notify"
)

func (r *RootCommand) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.serve(cmd.Context())
		},
	}
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	return cmd
}

func (r *RootCommand) serve(ctx context.Context) error {
	bus := notify.NewBus(r.logger)
	srv, closeFn, err := r.newService(ctx, bus)
	if err != nil {
		return err
	}
	defer closeFn()

	registry := files.NewRegistry(files.NewKeyCaseConverter())

	server := http.Server{
		Addr:        ":" + r.config.Port,
		Handler:     handler.NewRouter(srv, registry, bus, r.logger),
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не ставим: SSE-соединения живут долго
	}

	errc := make(chan error, 1)
	go func() {
		r.logger.Info("Server started", zap.String("addr", server.Addr), zap.String("backend", r.config.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	select {
	case err := <-errc:
		if err != nil {
			r.logger.Error("Server failed", zap.Error(err))
		}
		return err
	case <-quit:
	case <-ctx.Done():
	}

	r.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("Shutdown error", zap.Error(err))
		return err
	}
	r.logger.Info("Server stopped successfully")
	return nil
}
