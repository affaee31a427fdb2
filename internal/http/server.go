package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/dropDatabas3/internalhub/internal/observability/logger"
)

// Serve levanta el server y bloquea hasta que ctx se cancele o el listener
// falle. Al cancelar, drena las conexiones en curso con gracia acotada.
func Serve(ctx context.Context, addr string, handler stdhttp.Handler) error {
	srv := &stdhttp.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.L().Info("http server draining")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Warn("shutdown incomplete, closing", logger.Err(err))
		return srv.Close()
	}
	return nil
}
