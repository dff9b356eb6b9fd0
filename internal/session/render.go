package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

func seconds(d time.Duration) int {
	return int(max(d, 0) / time.Second)
}

// seatLabel renders "Player 1 (X)".
func seatLabel(side entity.Side) string {
	return fmt.Sprintf("Player %d (%s)", side.Number(), side.Mark())
}

func renderBoard(snapshot *entity.GameSnapshot) string {
	var sb strings.Builder

	size := snapshot.Size
	letters := columnLetters(size)

	sb.WriteString("    " + letters + "\n")
	sb.WriteString("    " + strings.Repeat(" O", size) + "\n")

	for row := range size {
		sb.WriteString(strings.Repeat(" ", row))
		fmt.Fprintf(&sb, "%2d X ", row)

		for col := range size {
			sb.WriteString(snapshot.Board.At(row, col).Mark() + " ")
		}

		fmt.Fprintf(&sb, "X %d\n", row)
	}

	indent := strings.Repeat(" ", size) + "   "
	sb.WriteString(indent + strings.Repeat(" O", size) + "\n")
	sb.WriteString(indent + letters + "\n")

	return sb.String()
}

func columnLetters(size int) string {
	var sb strings.Builder
	for col := range size {
		fmt.Fprintf(&sb, "%2c", 'A'+col)
	}

	return sb.String()
}

func renderGameInfo(snapshot *entity.GameSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Game ID: %s\n", snapshot.ID)
	fmt.Fprintf(&sb, "Board Size: %dx%d\n", snapshot.Size, snapshot.Size)
	fmt.Fprintf(&sb, "Player 1: %s (Time: %ds)\n", snapshot.Players[0], seconds(snapshot.Remaining[0]))

	if second := snapshot.Players[1]; second.IsZero() {
		sb.WriteString("Player 2: Waiting...\n")
	} else {
		fmt.Fprintf(&sb, "Player 2: %s (Time: %ds)\n", second, seconds(snapshot.Remaining[1]))
	}

	fmt.Fprintf(&sb, "Current player: %d\n", snapshot.Turn.Number())
	fmt.Fprintf(&sb, "Game status: %s\n", statusLabel(snapshot))

	if snapshot.IsFinished() && snapshot.Winner != entity.SideNone {
		fmt.Fprintf(&sb, "Winner: %s\n", snapshot.WinnerID)
		fmt.Fprintf(&sb, "Ended by: %s\n", snapshot.Reason)
	}

	return sb.String()
}

func statusLabel(snapshot *entity.GameSnapshot) string {
	switch {
	case snapshot.IsFinished():
		return "Ended"
	case snapshot.IsOngoing():
		return "Started"
	default:
		return "Waiting"
	}
}

// renderPlayerView is the board as seen from the seat of player.
func renderPlayerView(snapshot *entity.GameSnapshot, player entity.PlayerID) string {
	var sb strings.Builder

	side := snapshot.SideOf(player)

	if snapshot.IsFinished() {
		sb.WriteString("GAME OVER! ")
		if snapshot.Winner == side {
			sb.WriteString("You have won the game!\n")
		} else {
			sb.WriteString("Your opponent has won the game.\n")
		}
	}

	switch side {
	case entity.SideA:
		sb.WriteString("You are Player 1 (X) - Connect LEFT to RIGHT\n")
	case entity.SideB:
		sb.WriteString("You are Player 2 (O) - Connect TOP to BOTTOM\n")
	default:
		return renderGameInfo(snapshot) + renderBoard(snapshot)
	}

	fmt.Fprintf(&sb, "Your remaining time: %ds\n", seconds(snapshot.RemainingFor(side)))
	fmt.Fprintf(&sb, "Opponent's remaining time: %ds\n", seconds(snapshot.RemainingFor(side.Opponent())))
	fmt.Fprintf(&sb, "Moves played: %d\n", len(snapshot.Moves))

	if !snapshot.IsFinished() {
		if snapshot.Turn == side {
			sb.WriteString("IT'S YOUR TURN!\n")
		} else {
			sb.WriteString("Waiting for opponent's move...\n")
		}
	}

	sb.WriteString(renderBoard(snapshot))

	return sb.String()
}

func renderGameList(snapshots []*entity.GameSnapshot) string {
	var sb strings.Builder

	sb.WriteString("Active games:\n")
	for _, snapshot := range snapshots {
		var status string
		switch {
		case snapshot.IsFinished():
			status = "Ended"
		case snapshot.IsOngoing():
			status = "In progress"
		default:
			status = "Waiting for players"
		}

		fmt.Fprintf(&sb, "Game ID: %s, Size: %d, Status: %s\n", snapshot.ID, snapshot.Size, status)
	}

	return sb.String()
}

// renderResult shows an archived game that left the registry.
func renderResult(result *entity.GameResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Game ID: %s\n", result.ID)
	fmt.Fprintf(&sb, "Board Size: %dx%d\n", result.Size, result.Size)
	fmt.Fprintf(&sb, "Player 1: %s\n", result.Player1)
	fmt.Fprintf(&sb, "Player 2: %s\n", result.Player2)
	sb.WriteString("Game status: Ended\n")

	if result.Winner != "" {
		fmt.Fprintf(&sb, "Winner: %s (Player %d)\n", result.Winner, result.WinnerSeat)
		fmt.Fprintf(&sb, "Ended by: %s\n", result.Reason)
	}

	fmt.Fprintf(&sb, "Moves played: %d\n", len(result.Moves))
	fmt.Fprintf(&sb, "Ended at: %s\n", result.EndedAt.Format(time.RFC3339))

	return sb.String()
}

func winMessage(snapshot *entity.GameSnapshot) string {
	return fmt.Sprintf("Game Over! %s has won the game!\n%s", seatLabel(snapshot.Winner), renderBoard(snapshot))
}

func timeoutPush(snapshot *entity.GameSnapshot) string {
	return fmt.Sprintf("Game ended due to time expiration! Player %d wins!\n%s", snapshot.Winner.Number(), renderBoard(snapshot))
}

func endedMessage(prefix string, snapshot *entity.GameSnapshot) string {
	return fmt.Sprintf("%s %s has won!\n%s", prefix, seatLabel(snapshot.Winner), renderBoard(snapshot))
}
