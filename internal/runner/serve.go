package runner

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/internal/server"

	"github.com/shouni/go-http-kit/httpkit"
)

// ExecuteServe は中継サーバーを起動し、ctx のキャンセルで静かに停止するのだ。
func ExecuteServe(ctx context.Context, cfg *config.Config, addr string) error {
	relay := server.New(
		httpkit.New(cfg.Options.HTTPTimeout),
		server.Route{Upstream: cfg.TTSUpstream, APIKey: cfg.TTSAPIKey},
		server.Route{Upstream: cfg.GridUpstream, APIKey: cfg.GridAPIKey},
	)

	srv := &http.Server{
		Addr:    addr,
		Handler: relay.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("中継サーバーを起動するのだ", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("中継サーバーを停止するのだ")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
