package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/rocketscienceinc/hexgame-server/internal/session"
)

type sessionServer interface {
	Serve(ctx context.Context, conn session.Conn)
}

// Server accepts stream connections and hands each one to the session hub.
type Server struct {
	logger *slog.Logger
	hub    sessionServer

	wg sync.WaitGroup
}

func New(logger *slog.Logger, hub sessionServer) *Server {
	return &Server{
		logger: logger.With("component", "tcp"),
		hub:    hub,
	}
}

// Start listens on port and serves until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts on listener until ctx is done, then waits for the open sessions.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("method", "Serve", "addr", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()

	log.Info("server started")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				that.wg.Wait()
				log.Info("server stopped")

				return nil
			}

			return fmt.Errorf("failed to accept connection: %w", err)
		}

		log.Info("new client connected", "remote", conn.RemoteAddr().String())

		that.wg.Add(1)
		go func() {
			defer that.wg.Done()
			that.hub.Serve(ctx, newLineConn(conn))
		}()
	}
}
