package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/hexgame-server/internal/entity"
	"github.com/rocketscienceinc/hexgame-server/pkg/handlers"
)

const shutdownTimeout = 5 * time.Second

type gameReader interface {
	Game(gameID string) (*entity.HexGame, bool)
	List() []*entity.GameSnapshot
	Result(ctx context.Context, gameID string) (*entity.GameResult, error)
}

type Server struct {
	logger *slog.Logger
	games  gameReader
}

func New(logger *slog.Logger, games gameReader) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		games:  games,
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", handlers.PingHandler)
	mux.HandleFunc("GET /games", that.listGames)
	mux.HandleFunc("GET /games/{id}", that.getGame)

	return mux
}

// Start serves HTTP on port until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown HTTP server", "error", err)
		}
	})
	defer stop()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
