package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
	"github.com/rocketscienceinc/hexgame-server/pkg/handlers"
)

type gameView struct {
	ID        string           `json:"id"`
	Size      int              `json:"size"`
	Status    string           `json:"status"`
	WithAI    bool             `json:"with_ai,omitempty"`
	Players   [2]string        `json:"players"`
	Remaining [2]int           `json:"remaining_seconds"`
	Turn      int              `json:"turn,omitempty"`
	Winner    string           `json:"winner,omitempty"`
	Reason    entity.EndReason `json:"reason,omitempty"`
	Moves     int              `json:"moves"`
	Board     []string         `json:"board,omitempty"`
}

func newGameView(snapshot *entity.GameSnapshot, withBoard bool) gameView {
	view := gameView{
		ID:     snapshot.ID,
		Size:   snapshot.Size,
		Status: snapshot.Status,
		WithAI: snapshot.WithAI,
		Players: [2]string{
			snapshot.Players[0].String(),
			snapshot.Players[1].String(),
		},
		Remaining: [2]int{
			int(snapshot.RemainingFor(entity.SideA) / time.Second),
			int(snapshot.RemainingFor(entity.SideB) / time.Second),
		},
		Winner: snapshot.WinnerID.String(),
		Reason: snapshot.Reason,
		Moves:  len(snapshot.Moves),
	}

	if snapshot.IsOngoing() {
		view.Turn = snapshot.Turn.Number()
	}

	if withBoard {
		view.Board = make([]string, snapshot.Size)
		for row := range snapshot.Size {
			var sb strings.Builder
			for col := range snapshot.Size {
				sb.WriteString(snapshot.Board.At(row, col).Mark())
			}
			view.Board[row] = sb.String()
		}
	}

	return view
}

func (that *Server) listGames(w http.ResponseWriter, _ *http.Request) {
	snapshots := that.games.List()

	views := make([]gameView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, newGameView(snapshot, false))
	}

	handlers.WriteJSON(w, http.StatusOK, views)
}

// getGame serves a live game, or the archived result of an evicted one.
func (that *Server) getGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "getGame")
	gameID := r.PathValue("id")

	if game, ok := that.games.Game(gameID); ok {
		handlers.WriteJSON(w, http.StatusOK, newGameView(game.Snapshot(), true))
		return
	}

	result, err := that.games.Result(r.Context(), gameID)
	if errors.Is(err, apperror.ErrNotFound) {
		handlers.WriteError(w, http.StatusNotFound, apperror.ErrGameNotFound.Error())
		return
	}

	if err != nil {
		log.Error("failed to read archived result", "gameID", gameID, "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "Internal Server Error")

		return
	}

	handlers.WriteJSON(w, http.StatusOK, result)
}
