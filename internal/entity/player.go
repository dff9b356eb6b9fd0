package entity

// Side is the owner tag of a cell and the seat marker of a player.
type Side int8

const (
	SideNone Side = iota
	SideA
	SideB
)

// Opponent returns the other seat. SideNone has no opponent.
func (s Side) Opponent() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

// Mark is the board glyph of the side.
func (s Side) Mark() string {
	switch s {
	case SideA:
		return "X"
	case SideB:
		return "O"
	default:
		return "."
	}
}

// Number is the 1-based seat number used in messages.
func (s Side) Number() int {
	switch s {
	case SideA:
		return 1
	case SideB:
		return 2
	default:
		return 0
	}
}

type PlayerKind int8

const (
	KindHuman PlayerKind = iota + 1
	KindAI
)

// PlayerID identifies whoever sits in a seat: a connected peer or a bot.
// The zero value means "nobody".
type PlayerID struct {
	Kind PlayerKind `json:"kind"`
	ID   string     `json:"id"`
}

func Human(id string) PlayerID {
	return PlayerID{Kind: KindHuman, ID: id}
}

func AI(id string) PlayerID {
	return PlayerID{Kind: KindAI, ID: id}
}

func (that PlayerID) IsZero() bool {
	return that.ID == ""
}

func (that PlayerID) IsAI() bool {
	return that.Kind == KindAI
}

func (that PlayerID) String() string {
	if that.IsAI() {
		return "AI " + that.ID
	}

	return that.ID
}
