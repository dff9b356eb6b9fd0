package entity

import "time"

// GameSnapshot is a detached copy of a game; mutating it never touches the live game.
type GameSnapshot struct {
	ID          string
	Size        int
	Board       *Board
	TimeControl time.Duration
	WithAI      bool
	Players     [2]PlayerID
	Remaining   [2]time.Duration
	Status      string
	Turn        Side
	Winner      Side
	WinnerID    PlayerID
	Reason      EndReason
	EndedAt     time.Time
	Moves       []Move
}

func (that *GameSnapshot) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *GameSnapshot) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *GameSnapshot) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *GameSnapshot) SideOf(player PlayerID) Side {
	switch {
	case player.IsZero():
		return SideNone
	case that.Players[0] == player:
		return SideA
	case that.Players[1] == player:
		return SideB
	default:
		return SideNone
	}
}

func (that *GameSnapshot) Player(side Side) PlayerID {
	if side != SideA && side != SideB {
		return PlayerID{}
	}

	return that.Players[side-1]
}

// RemainingFor returns the remaining clock of side, never negative.
func (that *GameSnapshot) RemainingFor(side Side) time.Duration {
	if side != SideA && side != SideB {
		return 0
	}

	return max(that.Remaining[side-1], 0)
}

// Result converts a finished snapshot into an archive record.
func (that *GameSnapshot) Result() *GameResult {
	return &GameResult{
		ID:          that.ID,
		Size:        that.Size,
		TimeControl: int(that.TimeControl / time.Second),
		WithAI:      that.WithAI,
		Player1:     that.Players[0].String(),
		Player2:     that.Players[1].String(),
		Winner:      that.WinnerID.String(),
		WinnerSeat:  that.Winner.Number(),
		Reason:      that.Reason,
		Moves:       that.Moves,
		EndedAt:     that.EndedAt,
	}
}

// GameResult is the archived outcome of an evicted game.
type GameResult struct {
	ID          string    `json:"id"`
	Size        int       `json:"size"`
	TimeControl int       `json:"time_control"`
	WithAI      bool      `json:"with_ai,omitempty"`
	Player1     string    `json:"player1"`
	Player2     string    `json:"player2"`
	Winner      string    `json:"winner,omitempty"`
	WinnerSeat  int       `json:"winner_seat"`
	Reason      EndReason `json:"reason"`
	Moves       []Move    `json:"moves,omitempty"`
	EndedAt     time.Time `json:"ended_at"`
}
