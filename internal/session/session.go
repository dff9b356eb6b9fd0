package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

const (
	outboundQueueSize = 64
	pushPrefix        = "[Server]: "
)

// Conn is a line-oriented connection to one peer. A written line may span
// several text lines.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

// Session serves one connected peer: it reads commands, writes replies and
// pushes, and polls the clock of the peer's current game.
type Session struct {
	id     string
	player entity.PlayerID
	conn   Conn
	hub    *Hub
	logger *slog.Logger

	outbound   chan string
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	stopOnce   sync.Once
	stopping   atomic.Bool
	wg         sync.WaitGroup

	mu     sync.Mutex
	gameID string
}

func newSession(hub *Hub, conn Conn) *Session {
	id := uuid.NewString()

	return &Session{
		id:         id,
		player:     entity.Human(id),
		conn:       conn,
		hub:        hub,
		logger:     hub.logger.With("sessionID", id),
		outbound:   make(chan string, outboundQueueSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (that *Session) ID() string {
	return that.id
}

func (that *Session) run(ctx context.Context) {
	log := that.logger.With("method", "run")

	go that.writeLoop()

	that.wg.Add(1)
	go that.clockLoop(ctx)

	defer that.cleanup()

	that.send("Connected to Hex Game Server. Your client ID: " + that.id)

	for {
		line, err := that.conn.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Info("client disconnected abruptly", "error", err)
			}

			return
		}

		log.Info("received message from client", "line", line)

		if reply := that.dispatch(ctx, line); reply != "" {
			that.send(reply)
		}
	}
}

func (that *Session) currentGame() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.gameID
}

// enterGame makes gameID the current game. A waiting game left behind is
// abandoned and a running AI game is forfeited; a running game against a
// person is left to its clock.
func (that *Session) enterGame(gameID string) {
	that.mu.Lock()
	previous := that.gameID
	that.gameID = gameID
	that.mu.Unlock()

	if previous == "" || previous == gameID {
		return
	}

	if that.hub.games.Abandon(previous, that.player) {
		return
	}

	if game, ok := that.hub.games.Game(previous); ok && game.IsWithAI() {
		that.hub.games.Forfeit(previous, that.player)
	}
}

// send queues a line for the writer. It never blocks; a full queue drops the line.
func (that *Session) send(line string) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.outbound <- line:
		return true
	default:
		that.logger.Warn("outbound queue is full, message dropped")
		return false
	}
}

func (that *Session) push(message string) bool {
	return that.send(pushPrefix + message)
}

func (that *Session) writeLoop() {
	defer close(that.writerDone)

	for {
		select {
		case line := <-that.outbound:
			if !that.write(line) {
				return
			}
		case <-that.done:
			for {
				select {
				case line := <-that.outbound:
					if !that.write(line) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (that *Session) write(line string) bool {
	if err := that.conn.WriteLine(line); err != nil {
		that.logger.Info("failed to write to client", "error", err)
		_ = that.conn.Close()

		return false
	}

	return true
}

func (that *Session) clockLoop(ctx context.Context) {
	defer that.wg.Done()

	ticker := time.NewTicker(that.hub.settings.ClockCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			that.serverStopped()
			return
		case <-that.done:
			return
		case <-ticker.C:
			that.checkClock()
		}
	}
}

func (that *Session) checkClock() {
	gameID := that.currentGame()
	if gameID == "" {
		return
	}

	game, endedNow := that.hub.games.CheckClock(gameID)
	if endedNow {
		that.hub.notifyTimeout(game.Snapshot())
	}
}

// serverStopped tells the peer the server is going away and closes the
// session. Only the first call has any effect.
func (that *Session) serverStopped() {
	that.stopOnce.Do(func() {
		that.stopping.Store(true)
		that.send(msgServerStopped)
		that.close()
	})
}

// close flushes queued lines and closes the connection. Safe to call many times.
func (that *Session) close() {
	that.closeOnce.Do(func() {
		close(that.done)
		<-that.writerDone

		if err := that.conn.Close(); err != nil {
			that.logger.Debug("failed to close connection", "error", err)
		}
	})
}

// cleanup runs on every exit path of run.
func (that *Session) cleanup() {
	that.leaveGame()
	that.hub.remove(that)
	that.close()
	that.wg.Wait()

	that.logger.Info("client session closed")
}

// leaveGame applies the disconnect rule to the current game: a running game
// is lost, a waiting one is dropped. A server stop is not a disconnect.
func (that *Session) leaveGame() {
	gameID := that.currentGame()
	if gameID == "" || that.stopping.Load() || that.hub.isClosed() {
		return
	}

	if _, winner, ok := that.hub.games.Forfeit(gameID, that.player); ok {
		that.logger.Info("player disconnected from running game", "gameID", gameID, "winner", winner.String())
		that.hub.Notify(winner, msgOpponentLeft)

		return
	}

	that.hub.games.Abandon(gameID, that.player)
}
