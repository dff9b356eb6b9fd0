package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
	"github.com/rocketscienceinc/hexgame-server/internal/service"
)

const (
	MinTimeControl = 30
	MaxTimeControl = 3600

	defaultThinkingDelay   = time.Second
	defaultFinishedGameTTL = 10 * time.Minute
	defaultCleanupInterval = time.Minute

	archiveLookupTimeout = 2 * time.Second
)

type resultRepo interface {
	Save(ctx context.Context, result *entity.GameResult) error
	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
}

// Observer hears about game events no player request caused: a move the AI
// applied on its own and a timeout found by the janitor.
type Observer interface {
	BotMoved(game *entity.HexGame, bot entity.PlayerID, move entity.Cell)
	GameTimedOut(game *entity.HexGame)
}

type Settings struct {
	ThinkingDelay   time.Duration
	FinishedGameTTL time.Duration
	CleanupInterval time.Duration
}

type gameSettings struct {
	Size        int `validate:"min=5,max=19"`
	TimeControl int `validate:"min=30,max=3600"`
}

type Option func(*GameManager)

// WithClock sets the clock handed to every created game and used for eviction.
func WithClock(now func() time.Time) Option {
	return func(manager *GameManager) {
		manager.now = now
	}
}

// WithIDGenerator replaces the six digit game id generator.
func WithIDGenerator(generate func() string) Option {
	return func(manager *GameManager) {
		manager.generateID = generate
	}
}

// GameManager is the registry of active games. It routes joins and moves
// and schedules the AI replies.
type GameManager struct {
	logger     *slog.Logger
	validate   *validator.Validate
	results    resultRepo
	settings   Settings
	now        func() time.Time
	generateID func() string
	scheduler  *scheduler

	mu    sync.RWMutex
	games map[string]*entity.HexGame
	bots  map[entity.PlayerID]*service.Bot

	observerMu sync.RWMutex
	observer   Observer
}

// NewGameManager builds a registry. results may be nil when no archive is configured.
func NewGameManager(logger *slog.Logger, results resultRepo, settings Settings, opts ...Option) *GameManager {
	if settings.ThinkingDelay <= 0 {
		settings.ThinkingDelay = defaultThinkingDelay
	}
	if settings.FinishedGameTTL <= 0 {
		settings.FinishedGameTTL = defaultFinishedGameTTL
	}
	if settings.CleanupInterval <= 0 {
		settings.CleanupInterval = defaultCleanupInterval
	}

	manager := &GameManager{
		logger:     logger.With("component", "game_manager"),
		validate:   validator.New(),
		results:    results,
		settings:   settings,
		now:        time.Now,
		generateID: generateGameID,
		games:      make(map[string]*entity.HexGame),
		bots:       make(map[entity.PlayerID]*service.Bot),
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.scheduler = newScheduler(logger)

	return manager
}

func (that *GameManager) SetObserver(observer Observer) {
	that.observerMu.Lock()
	defer that.observerMu.Unlock()

	that.observer = observer
}

// CreateGame registers a new waiting game under a fresh unique id.
func (that *GameManager) CreateGame(size, timeControlSeconds int) (*entity.HexGame, error) {
	log := that.logger.With("method", "CreateGame")

	if err := that.validateSettings(size, timeControlSeconds); err != nil {
		return nil, err
	}

	game, err := that.register(size, timeControlSeconds, func(*entity.HexGame) error { return nil })
	if err != nil {
		return nil, err
	}

	log.Info("new game created", "gameID", game.ID(), "size", size, "timeControl", timeControlSeconds)

	return game, nil
}

// CreateAIGame registers a game already seating human as player 1 and a
// fresh bot as player 2.
func (that *GameManager) CreateAIGame(size, timeControlSeconds int, human entity.PlayerID) (*entity.HexGame, error) {
	log := that.logger.With("method", "CreateAIGame")

	if err := that.validateSettings(size, timeControlSeconds); err != nil {
		return nil, err
	}

	bot := service.NewBot(entity.AI(uuid.NewString()))

	game, err := that.register(size, timeControlSeconds, func(game *entity.HexGame) error {
		if _, err := game.Join(human); err != nil {
			return fmt.Errorf("failed to seat human: %w", err)
		}

		if _, err := game.Join(bot.ID()); err != nil {
			return fmt.Errorf("failed to seat bot: %w", err)
		}

		that.bots[bot.ID()] = bot

		return nil
	}, entity.WithAI())
	if err != nil {
		return nil, err
	}

	that.scheduleBotMove(game)

	log.Info("new AI game created", "gameID", game.ID(), "human", human.ID, "bot", bot.ID().ID)

	return game, nil
}

// register creates the game, runs setup and inserts it under the registry lock.
// The id is unique among live games and archived results.
func (that *GameManager) register(
	size, timeControlSeconds int, setup func(*entity.HexGame) error, opts ...entity.GameOption,
) (*entity.HexGame, error) {
	var id string
	for {
		id = that.generateID()
		if that.archived(id) {
			continue
		}

		that.mu.Lock()
		if _, exists := that.games[id]; !exists {
			break
		}
		that.mu.Unlock()
	}
	defer that.mu.Unlock()

	opts = append(opts, entity.WithClock(that.now))

	game, err := entity.NewHexGame(id, size, time.Duration(timeControlSeconds)*time.Second, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err = setup(game); err != nil {
		return nil, err
	}

	that.games[id] = game

	return game, nil
}

// archived reports whether id already names an archived result. An
// unreachable archive counts as free.
func (that *GameManager) archived(id string) bool {
	if that.results == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveLookupTimeout)
	defer cancel()

	_, err := that.results.GetByID(ctx, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		that.logger.Error("failed to check archived game id", "gameID", id, "error", err)
	}

	return err == nil
}

func (that *GameManager) validateSettings(size, timeControlSeconds int) error {
	err := that.validate.Struct(gameSettings{Size: size, TimeControl: timeControlSeconds})

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	if validationErrors[0].Field() == "Size" {
		return fmt.Errorf("%w: %d not in [%d, %d]", apperror.ErrInvalidBoardSize, size, entity.MinBoardSize, entity.MaxBoardSize)
	}

	return fmt.Errorf("%w: %d not in [%d, %d]", apperror.ErrInvalidTimeLimit, timeControlSeconds, MinTimeControl, MaxTimeControl)
}

func (that *GameManager) Game(gameID string) (*entity.HexGame, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[gameID]

	return game, ok
}

// List returns a snapshot of every registered game ordered by id.
func (that *GameManager) List() []*entity.GameSnapshot {
	that.mu.RLock()
	games := make([]*entity.HexGame, 0, len(that.games))
	for _, game := range that.games {
		games = append(games, game)
	}
	that.mu.RUnlock()

	snapshots := make([]*entity.GameSnapshot, 0, len(games))
	for _, game := range games {
		snapshots = append(snapshots, game.Snapshot())
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})

	return snapshots
}

func (that *GameManager) JoinGame(gameID string, player entity.PlayerID) (*entity.HexGame, entity.Side, error) {
	log := that.logger.With("method", "JoinGame", "gameID", gameID)

	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[gameID]
	if !ok {
		return nil, entity.SideNone, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, gameID)
	}

	side, err := game.Join(player)
	if err != nil {
		return game, entity.SideNone, fmt.Errorf("failed to join game %s: %w", gameID, err)
	}

	log.Info("player joined game", "playerID", player.ID, "seat", side.Number())

	return game, side, nil
}

func (that *GameManager) MakeMove(gameID string, player entity.PlayerID, row, col int) (*entity.HexGame, error) {
	log := that.logger.With("method", "MakeMove", "gameID", gameID)

	game, ok := that.Game(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, gameID)
	}

	if err := game.MakeMove(player, row, col); err != nil {
		if errors.Is(err, apperror.ErrTimeExpired) {
			log.Info("player ran out of time", "playerID", player.ID)
		}

		return game, err
	}

	log.Info("player made move", "playerID", player.ID, "row", row, "col", col)

	if game.IsFinished() {
		log.Info("game ended", "winner", game.Snapshot().WinnerID.ID)
		return game, nil
	}

	if game.IsWithAI() {
		that.scheduleBotMove(game)
	}

	return game, nil
}

// CheckClock charges the running clock and reports whether this call ended the game.
func (that *GameManager) CheckClock(gameID string) (*entity.HexGame, bool) {
	game, ok := that.Game(gameID)
	if !ok {
		return nil, false
	}

	if !game.UpdateTimeRemaining() {
		return game, false
	}

	that.logger.Info("game ended on time", "gameID", gameID, "winner", game.Snapshot().WinnerID.ID)

	return game, true
}

// Forfeit ends a started game because player left; the other seat wins.
func (that *GameManager) Forfeit(gameID string, player entity.PlayerID) (*entity.HexGame, entity.PlayerID, bool) {
	game, ok := that.Game(gameID)
	if !ok {
		return nil, entity.PlayerID{}, false
	}

	winner, ok := game.Forfeit(player)
	if ok {
		that.logger.Info("player forfeited", "gameID", gameID, "playerID", player.ID, "winner", winner.ID)
	}

	return game, winner, ok
}

// Abandon drops a waiting game whose only player left, freeing its id.
func (that *GameManager) Abandon(gameID string, player entity.PlayerID) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[gameID]
	if !ok || game.Status() != entity.StatusWaiting || game.SideOf(player) == entity.SideNone {
		return false
	}

	delete(that.games, gameID)
	that.logger.Info("waiting game abandoned", "gameID", gameID, "playerID", player.ID)

	return true
}

// RemoveGame evicts the game and releases its AI identity.
func (that *GameManager) RemoveGame(gameID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.removeLocked(gameID)
}

func (that *GameManager) removeLocked(gameID string) {
	game, ok := that.games[gameID]
	if !ok {
		return
	}

	delete(that.games, gameID)

	for _, side := range []entity.Side{entity.SideA, entity.SideB} {
		if player := game.Player(side); player.IsAI() {
			delete(that.bots, player)
		}
	}

	that.logger.Info("game removed", "gameID", gameID)
}

// Result looks up the archived outcome of an evicted game.
func (that *GameManager) Result(ctx context.Context, gameID string) (*entity.GameResult, error) {
	if that.results == nil {
		return nil, apperror.ErrNotFound
	}

	result, err := that.results.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result %s: %w", gameID, err)
	}

	return result, nil
}

// EvictFinished charges every running clock, then archives and removes games
// that ended longer than the TTL ago. Games nobody watches still end on time.
func (that *GameManager) EvictFinished(ctx context.Context) int {
	log := that.logger.With("method", "EvictFinished")
	cutoff := that.now().Add(-that.settings.FinishedGameTTL)

	that.mu.RLock()
	games := make([]*entity.HexGame, 0, len(that.games))
	for _, game := range that.games {
		games = append(games, game)
	}
	that.mu.RUnlock()

	expired := make([]*entity.HexGame, 0)
	for _, game := range games {
		if game.UpdateTimeRemaining() {
			log.Info("game ended on time", "gameID", game.ID())

			if observer := that.currentObserver(); observer != nil {
				observer.GameTimedOut(game)
			}
		}

		if game.FinishedBefore(cutoff) {
			expired = append(expired, game)
		}
	}

	for _, game := range expired {
		if that.results != nil {
			if err := that.results.Save(ctx, game.Snapshot().Result()); err != nil {
				log.Error("failed to archive game", "gameID", game.ID(), "error", err)
			}
		}

		that.RemoveGame(game.ID())
	}

	return len(expired)
}

// Run evicts finished games periodically until ctx is done.
func (that *GameManager) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")

	ticker := time.NewTicker(that.settings.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count := that.EvictFinished(ctx); count > 0 {
				log.Info("cleaned up finished games", "count", count)
			}
		}
	}
}

// Shutdown cancels pending AI moves and waits for a running one.
func (that *GameManager) Shutdown() {
	that.scheduler.Stop()
}

func (that *GameManager) scheduleBotMove(game *entity.HexGame) {
	snapshot := game.Snapshot()
	if !snapshot.IsOngoing() {
		return
	}

	bot := snapshot.Player(snapshot.Turn)
	if !bot.IsAI() {
		return
	}

	if !that.scheduler.After(that.settings.ThinkingDelay, func() { that.playBotMove(game.ID(), bot) }) {
		that.logger.Warn("scheduler stopped, AI move dropped", "gameID", game.ID())
	}
}

func (that *GameManager) playBotMove(gameID string, botID entity.PlayerID) {
	log := that.logger.With("method", "playBotMove", "gameID", gameID)

	that.mu.RLock()
	game, gameOK := that.games[gameID]
	bot, botOK := that.bots[botID]
	that.mu.RUnlock()

	if !gameOK || !botOK {
		return
	}

	snapshot := game.Snapshot()
	if !snapshot.IsOngoing() || snapshot.Player(snapshot.Turn) != botID {
		return
	}

	move, err := bot.NextMove(snapshot)
	if err != nil {
		log.Error("AI failed to choose a move", "error", err)
		return
	}

	if _, err = that.MakeMove(gameID, botID, move.Row, move.Col); err != nil {
		log.Error("AI move rejected", "error", err)
		return
	}

	if observer := that.currentObserver(); observer != nil {
		observer.BotMoved(game, botID, move)
	}
}

func (that *GameManager) currentObserver() Observer {
	that.observerMu.RLock()
	defer that.observerMu.RUnlock()

	return that.observer
}

func generateGameID() string {
	return strconv.Itoa(100000 + rand.Intn(900000)) //nolint: gosec // it's ok
}
