package apperror

import "errors"

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrGameFull         = errors.New("game is full")
	ErrAlreadyJoined    = errors.New("player already joined this game")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrGameFinished     = errors.New("game is already finished")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrOutOfBounds      = errors.New("cell is out of bounds")
	ErrTimeExpired      = errors.New("time has expired")
	ErrInvalidBoardSize = errors.New("invalid board size")
	ErrInvalidTimeLimit = errors.New("invalid time control")
	ErrNoMovesAvailable = errors.New("no available moves")
	ErrNotFound         = errors.New("not found")
)
