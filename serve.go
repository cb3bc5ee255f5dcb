package sqlview

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe validates cfg, then serves the viewer until ctx is done.
func ListenAndServe(ctx context.Context, cfg Config, logger *logrus.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	RegisterMetrics()

	server := NewServer(NewGateway(cfg.DatabasePath), WithLogger(logger), WithCORS(cfg.CORS))
	s := &http.Server{
		Addr:    cfg.Address(),
		Handler: server,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Serving %s at http://%s", cfg.DatabasePath, cfg.Address())
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
