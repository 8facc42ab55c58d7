package bridge

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// serveDiagnostics runs the loopback HTTP mux until ctx is canceled,
// following the teacher's own http.Server-plus-context.WithTimeout
// shutdown shape (cmd/main.go).
func serveDiagnostics(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
