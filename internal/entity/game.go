package entity

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "in progress"
	StatusFinished = "ended"
)

type EndReason string

const (
	ReasonNone       EndReason = ""
	ReasonConnection EndReason = "connection"
	ReasonTimeout    EndReason = "timeout"
	ReasonForfeit    EndReason = "forfeit"
)

type Move struct {
	Side Side      `json:"side"`
	Row  int       `json:"row"`
	Col  int       `json:"col"`
	At   time.Time `json:"at"`
}

type GameOption func(*HexGame)

// WithClock replaces the wall clock used for time control.
func WithClock(now func() time.Time) GameOption {
	return func(game *HexGame) {
		game.now = now
	}
}

// WithAI marks the game as played against the bot.
func WithAI() GameOption {
	return func(game *HexGame) {
		game.withAI = true
	}
}

// HexGame is one match: board, two seats, chess clock and result.
// Every state transition holds mu for its whole duration.
type HexGame struct {
	mu sync.Mutex

	id          string
	board       *Board
	timeControl time.Duration
	withAI      bool
	now         func() time.Time

	players    [2]PlayerID
	remaining  [2]time.Duration
	clockStart [2]time.Time

	started bool
	ended   bool
	turn    Side
	winner  Side
	reason  EndReason
	endedAt time.Time
	moves   []Move
}

func NewHexGame(id string, size int, timeControl time.Duration, opts ...GameOption) (*HexGame, error) {
	board, err := NewBoard(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	game := &HexGame{
		id:          id,
		board:       board,
		timeControl: timeControl,
		now:         time.Now,
		remaining:   [2]time.Duration{timeControl, timeControl},
		turn:        SideA,
	}

	for _, opt := range opts {
		opt(game)
	}

	return game, nil
}

func (that *HexGame) ID() string {
	return that.id
}

func (that *HexGame) Size() int {
	return that.board.Size()
}

func (that *HexGame) TimeControl() time.Duration {
	return that.timeControl
}

func (that *HexGame) IsWithAI() bool {
	return that.withAI
}

// Join seats a player. The first caller takes seat A, a second distinct
// caller takes seat B and starts the clock for seat A.
func (that *HexGame) Join(player PlayerID) (Side, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.ended {
		return SideNone, apperror.ErrGameFinished
	}

	first := that.players[0]
	switch {
	case first.IsZero():
		that.players[0] = player
		return SideA, nil
	case first == player || that.players[1] == player:
		return SideNone, apperror.ErrAlreadyJoined
	case that.players[1].IsZero():
		that.players[1] = player
		that.started = true
		that.turn = SideA
		that.clockStart[0] = that.now()
		return SideB, nil
	default:
		return SideNone, apperror.ErrGameFull
	}
}

// MakeMove applies a stone for player. Clock expiry discovered here ends the
// game for the opponent and rejects the move.
func (that *HexGame) MakeMove(player PlayerID, row, col int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch {
	case that.ended:
		return apperror.ErrGameFinished
	case !that.started:
		return apperror.ErrGameIsNotStarted
	case that.players[that.turn-1] != player:
		return apperror.ErrNotYourTurn
	}

	if that.updateTimeRemaining() {
		return apperror.ErrTimeExpired
	}

	mover := that.turn
	if err := that.board.Place(row, col, mover); err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	now := that.now()
	that.moves = append(that.moves, Move{Side: mover, Row: row, Col: col, At: now})

	if that.board.Connected(mover) {
		that.finish(mover, ReasonConnection)
	}

	that.clockStart[mover-1] = time.Time{}
	that.turn = mover.Opponent()
	if !that.ended {
		that.clockStart[that.turn-1] = now
	}

	return nil
}

// UpdateTimeRemaining charges elapsed time to the side on the clock. It
// reports true only for the call that ended the game by timeout.
func (that *HexGame) UpdateTimeRemaining() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.updateTimeRemaining()
}

func (that *HexGame) updateTimeRemaining() bool {
	if !that.started || that.ended {
		return false
	}

	now := that.now()
	for i := range that.clockStart {
		if that.clockStart[i].IsZero() {
			continue
		}

		expiry := that.clockStart[i].Add(that.remaining[i])
		that.remaining[i] -= now.Sub(that.clockStart[i])
		that.clockStart[i] = now

		if that.remaining[i] <= 0 {
			that.remaining[i] = 0
			that.finishAt(Side(i+1).Opponent(), ReasonTimeout, expiry)

			return true
		}
	}

	return false
}

// Forfeit ends a running game in favour of the other seat. It returns the
// winner and true only for the call that ended the game.
func (that *HexGame) Forfeit(loser PlayerID) (PlayerID, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.started || that.ended {
		return PlayerID{}, false
	}

	side := that.sideOf(loser)
	if side == SideNone {
		return PlayerID{}, false
	}

	that.finish(side.Opponent(), ReasonForfeit)

	return that.players[side.Opponent()-1], true
}

func (that *HexGame) finish(winner Side, reason EndReason) {
	that.finishAt(winner, reason, that.now())
}

// finishAt ends the game as of at. A timeout ends when the clock ran out,
// not when someone noticed.
func (that *HexGame) finishAt(winner Side, reason EndReason, at time.Time) {
	that.ended = true
	that.winner = winner
	that.reason = reason
	that.endedAt = at
	that.clockStart = [2]time.Time{}
}

// SideOf returns the seat of player or SideNone.
func (that *HexGame) SideOf(player PlayerID) Side {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.sideOf(player)
}

func (that *HexGame) sideOf(player PlayerID) Side {
	switch {
	case player.IsZero():
		return SideNone
	case that.players[0] == player:
		return SideA
	case that.players[1] == player:
		return SideB
	default:
		return SideNone
	}
}

func (that *HexGame) Player(side Side) PlayerID {
	if side != SideA && side != SideB {
		return PlayerID{}
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return that.players[side-1]
}

// Opponent returns the player seated against player.
func (that *HexGame) Opponent(player PlayerID) PlayerID {
	that.mu.Lock()
	defer that.mu.Unlock()

	side := that.sideOf(player)
	if side == SideNone {
		return PlayerID{}
	}

	return that.players[side.Opponent()-1]
}

func (that *HexGame) Status() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status()
}

func (that *HexGame) status() string {
	switch {
	case that.ended:
		return StatusFinished
	case that.started:
		return StatusOngoing
	default:
		return StatusWaiting
	}
}

func (that *HexGame) IsFinished() bool {
	return that.Status() == StatusFinished
}

// FinishedBefore reports whether the game ended at or before t.
func (that *HexGame) FinishedBefore(t time.Time) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.ended && !that.endedAt.After(t)
}

// Snapshot charges the running clock and returns a consistent copy of the game.
func (that *HexGame) Snapshot() *GameSnapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.updateTimeRemaining()

	snapshot := &GameSnapshot{
		ID:          that.id,
		Size:        that.board.Size(),
		Board:       that.board.Clone(),
		TimeControl: that.timeControl,
		WithAI:      that.withAI,
		Players:     that.players,
		Remaining:   that.remaining,
		Status:      that.status(),
		Turn:        that.turn,
		Winner:      that.winner,
		Reason:      that.reason,
		EndedAt:     that.endedAt,
		Moves:       make([]Move, len(that.moves)),
	}
	copy(snapshot.Moves, that.moves)

	if that.winner != SideNone {
		snapshot.WinnerID = that.players[that.winner-1]
	}

	return snapshot
}
