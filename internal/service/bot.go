package service

import (
	"errors"
	"math/rand"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

var ErrBotNotSeated = errors.New("bot player is not seated in the game")

const (
	friendlyNeighborScore = 5
	potentialPathScore    = 50
)

// Bot is the AI opponent. It only ever reads snapshots and scores moves on
// private copies of the board.
type Bot struct {
	id entity.PlayerID
}

func NewBot(id entity.PlayerID) *Bot {
	return &Bot{id: id}
}

func (that *Bot) ID() entity.PlayerID {
	return that.id
}

// NextMove picks a move in this order: center on an empty board, immediate
// win, block of an immediate opponent win, best path-building score, random.
func (that *Bot) NextMove(snapshot *entity.GameSnapshot) (entity.Cell, error) {
	side := snapshot.SideOf(that.id)
	if side == entity.SideNone {
		return entity.Cell{}, ErrBotNotSeated
	}

	board := snapshot.Board
	available := board.EmptyCells()
	if len(available) == 0 {
		return entity.Cell{}, apperror.ErrNoMovesAvailable
	}

	if board.IsEmpty() {
		center := board.Size() / 2
		return entity.Cell{Row: center, Col: center}, nil
	}

	if cell, ok := findWinningMove(board, available, side); ok {
		return cell, nil
	}

	if cell, ok := findWinningMove(board, available, side.Opponent()); ok {
		return cell, nil
	}

	if cell, ok := findPathBuildingMove(board, available, side); ok {
		return cell, nil
	}

	return available[rand.Intn(len(available))], nil //nolint: gosec // it's ok
}

func findWinningMove(board *entity.Board, available []entity.Cell, side entity.Side) (entity.Cell, bool) {
	for _, cell := range available {
		if withStone(board, cell, side).Connected(side) {
			return cell, true
		}
	}

	return entity.Cell{}, false
}

func findPathBuildingMove(board *entity.Board, available []entity.Cell, side entity.Side) (entity.Cell, bool) {
	var (
		best      entity.Cell
		bestScore int
		found     bool
	)

	for _, cell := range available {
		score := scoreMove(board, cell, side)
		if !found || score > bestScore {
			best, bestScore, found = cell, score, true
		}
	}

	return best, found
}

func scoreMove(board *entity.Board, cell entity.Cell, side entity.Side) int {
	score := 0

	for _, nb := range board.Neighbors(cell.Row, cell.Col) {
		if board.At(nb.Row, nb.Col) == side {
			score += friendlyNeighborScore
		}
	}

	center := board.Size() / 2
	score += board.Size() - (abs(cell.Row-center) + abs(cell.Col-center))

	if withStone(board, cell, side).HasPotentialPath(side) {
		score += potentialPathScore
	}

	return score
}

func withStone(board *entity.Board, cell entity.Cell, side entity.Side) *entity.Board {
	candidate := board.Clone()
	_ = candidate.Place(cell.Row, cell.Col, side)

	return candidate
}

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}
