package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

const defaultClockCheckInterval = time.Second

type gameRegistry interface {
	CreateGame(size, timeControlSeconds int) (*entity.HexGame, error)
	CreateAIGame(size, timeControlSeconds int, human entity.PlayerID) (*entity.HexGame, error)
	Game(gameID string) (*entity.HexGame, bool)
	List() []*entity.GameSnapshot
	JoinGame(gameID string, player entity.PlayerID) (*entity.HexGame, entity.Side, error)
	MakeMove(gameID string, player entity.PlayerID, row, col int) (*entity.HexGame, error)
	CheckClock(gameID string) (*entity.HexGame, bool)
	Forfeit(gameID string, player entity.PlayerID) (*entity.HexGame, entity.PlayerID, bool)
	Abandon(gameID string, player entity.PlayerID) bool
	Result(ctx context.Context, gameID string) (*entity.GameResult, error)
}

type Settings struct {
	ClockCheckInterval time.Duration
}

// Hub owns the live sessions and routes pushes to them by peer id.
type Hub struct {
	logger   *slog.Logger
	games    gameRegistry
	settings Settings

	stopMu sync.Mutex
	stop   func()

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
	wg       sync.WaitGroup
}

func NewHub(logger *slog.Logger, games gameRegistry, settings Settings) *Hub {
	if settings.ClockCheckInterval <= 0 {
		settings.ClockCheckInterval = defaultClockCheckInterval
	}

	return &Hub{
		logger:   logger.With("component", "hub"),
		games:    games,
		settings: settings,
		sessions: make(map[string]*Session),
	}
}

// OnStop sets what the stop command triggers. Without it the hub shuts itself down.
func (that *Hub) OnStop(stop func()) {
	that.stopMu.Lock()
	defer that.stopMu.Unlock()

	that.stop = stop
}

// Serve runs a session on conn until the peer leaves or the hub shuts down.
func (that *Hub) Serve(ctx context.Context, conn Conn) {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()

		_ = conn.WriteLine(msgServerStopped)
		_ = conn.Close()

		return
	}

	session := newSession(that, conn)
	that.sessions[session.id] = session
	that.wg.Add(1)
	that.mu.Unlock()

	defer that.wg.Done()

	that.logger.Info("new client connected", "sessionID", session.id)

	session.run(ctx)
}

func (that *Hub) remove(session *Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, session.id)
	that.logger.Info("client disconnected", "sessionID", session.id, "remaining", len(that.sessions))
}

func (that *Hub) isClosed() bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.closed
}

// Len returns the number of live sessions.
func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}

// Notify pushes message to the session of player. Bots and absent peers are skipped.
func (that *Hub) Notify(player entity.PlayerID, message string) bool {
	if player.IsZero() || player.IsAI() {
		return false
	}

	that.mu.RLock()
	session, ok := that.sessions[player.ID]
	that.mu.RUnlock()

	if !ok {
		return false
	}

	return session.push(message)
}

func (that *Hub) notifyTimeout(snapshot *entity.GameSnapshot) {
	message := timeoutPush(snapshot)
	for _, player := range snapshot.Players {
		that.Notify(player, message)
	}
}

// BotMoved tells the human in an AI game that the bot has answered.
func (that *Hub) BotMoved(game *entity.HexGame, bot entity.PlayerID, _ entity.Cell) {
	snapshot := game.Snapshot()
	human := snapshot.Player(snapshot.SideOf(bot).Opponent())

	if snapshot.IsFinished() {
		that.Notify(human, winMessage(snapshot))
		return
	}

	that.Notify(human, msgOpponentMoved+renderPlayerView(snapshot, human))
}

// GameTimedOut tells both players about a timeout nobody's clock check saw.
func (that *Hub) GameTimedOut(game *entity.HexGame) {
	that.notifyTimeout(game.Snapshot())
}

// RequestStop asks for a server stop without blocking the caller.
func (that *Hub) RequestStop() {
	that.stopMu.Lock()
	stop := that.stop
	that.stopMu.Unlock()

	if stop != nil {
		stop()
		return
	}

	go that.Shutdown()
}

// Shutdown refuses new sessions, tells every live one the server stopped,
// closes them and waits for their workers.
func (that *Hub) Shutdown() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}

	that.closed = true
	sessions := make([]*Session, 0, len(that.sessions))
	for _, session := range that.sessions {
		sessions = append(sessions, session)
	}
	that.mu.Unlock()

	that.logger.Info("stopping sessions", "count", len(sessions))

	for _, session := range sessions {
		session.serverStopped()
	}

	that.wg.Wait()
}
