package entity

import (
	"fmt"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
)

const (
	MinBoardSize = 5
	MaxBoardSize = 19
)

// HexDirections are the six neighbour offsets of a cell on the rhombus board.
var HexDirections = [6][2]int{
	{-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0},
}

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Board is a size x size hex grid stored row-major.
type Board struct {
	size  int
	cells []Side
}

func NewBoard(size int) (*Board, error) {
	if size < MinBoardSize || size > MaxBoardSize {
		return nil, fmt.Errorf("%w: %d", apperror.ErrInvalidBoardSize, size)
	}

	return &Board{
		size:  size,
		cells: make([]Side, size*size),
	}, nil
}

func (that *Board) Size() int {
	return that.size
}

func (that *Board) InBounds(row, col int) bool {
	return row >= 0 && row < that.size && col >= 0 && col < that.size
}

// At returns the owner of a cell; out-of-bounds cells read as SideNone.
func (that *Board) At(row, col int) Side {
	if !that.InBounds(row, col) {
		return SideNone
	}

	return that.cells[row*that.size+col]
}

// Place marks an empty cell. A cell changes owner exactly once.
func (that *Board) Place(row, col int, side Side) error {
	if !that.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d)", apperror.ErrOutOfBounds, row, col)
	}

	idx := row*that.size + col
	if that.cells[idx] != SideNone {
		return apperror.ErrCellOccupied
	}

	that.cells[idx] = side

	return nil
}

func (that *Board) Clone() *Board {
	cells := make([]Side, len(that.cells))
	copy(cells, that.cells)

	return &Board{size: that.size, cells: cells}
}

func (that *Board) IsEmpty() bool {
	for _, cell := range that.cells {
		if cell != SideNone {
			return false
		}
	}

	return true
}

// EmptyCells lists free cells in row-major order.
func (that *Board) EmptyCells() []Cell {
	free := make([]Cell, 0, len(that.cells))
	for idx, cell := range that.cells {
		if cell == SideNone {
			free = append(free, Cell{Row: idx / that.size, Col: idx % that.size})
		}
	}

	return free
}

// Neighbors returns the in-bounds hex neighbours of a cell.
func (that *Board) Neighbors(row, col int) []Cell {
	out := make([]Cell, 0, len(HexDirections))
	for _, dir := range HexDirections {
		r, c := row+dir[0], col+dir[1]
		if that.InBounds(r, c) {
			out = append(out, Cell{Row: r, Col: c})
		}
	}

	return out
}

// Connected reports whether side links its two goal edges:
// SideA joins left and right, SideB joins top and bottom.
func (that *Board) Connected(side Side) bool {
	return that.connects(side, func(owner Side) bool { return owner == side })
}

// HasPotentialPath reports whether a chain of own or empty cells still joins
// the goal edges of side.
func (that *Board) HasPotentialPath(side Side) bool {
	return that.connects(side, func(owner Side) bool { return owner == side || owner == SideNone })
}

func (that *Board) connects(side Side, passable func(Side) bool) bool {
	if side != SideA && side != SideB {
		return false
	}

	n := that.size
	source, target := n*n, n*n+1
	ds := NewDisjointSet(n*n + 2)

	for i := 0; i < n; i++ {
		var first, last Cell
		if side == SideA {
			first, last = Cell{Row: i, Col: 0}, Cell{Row: i, Col: n - 1}
		} else {
			first, last = Cell{Row: 0, Col: i}, Cell{Row: n - 1, Col: i}
		}

		if passable(that.At(first.Row, first.Col)) {
			ds.Union(first.Row*n+first.Col, source)
		}
		if passable(that.At(last.Row, last.Col)) {
			ds.Union(last.Row*n+last.Col, target)
		}
	}

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !passable(that.At(row, col)) {
				continue
			}

			for _, nb := range that.Neighbors(row, col) {
				if passable(that.At(nb.Row, nb.Col)) {
					ds.Union(row*n+col, nb.Row*n+nb.Col)
				}
			}
		}
	}

	return ds.Connected(source, target)
}
