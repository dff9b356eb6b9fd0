package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

const (
	msgUnknownCommand    = "Unknown command. Type 'help' for available commands."
	msgNotInGame         = "You are not currently in any game. Please join a game first."
	msgGameNotFound      = "Game not found"
	msgJoinFailed        = "Failed to join game. Game might be full or not exist."
	msgInvalidCoordinate = "Invalid row/column format. Use numbers or letters A-Z."
	msgInvalidBoardSize  = "Invalid board size. Choose between 5 and 19."
	msgInvalidTimeLimit  = "Invalid time control. Choose between 30 and 3600 seconds."
	msgServerStopped     = "Server stopped"
	msgOpponentMoved     = "Opponent made a move. Your turn now!\n"
	msgOpponentLeft      = "Your opponent has disconnected. You win the game!"
)

type commandKind int

const (
	cmdCreate commandKind = iota
	cmdAI
	cmdJoin
	cmdMove
	cmdState
	cmdList
	cmdHelp
	cmdStop
)

type commandSpec struct {
	name        string
	usage       string
	description string
	minArgs     int
}

// commandSpecs is also the order of the help listing.
var commandSpecs = [...]commandSpec{
	cmdCreate: {name: "create", usage: "create <board_size> <time_control_seconds>", description: "Create a new game", minArgs: 2},
	cmdAI:     {name: "ai", usage: "ai <board_size> <time_control_seconds>", description: "Create a new game against AI", minArgs: 2},
	cmdJoin:   {name: "join", usage: "join <game_id>", description: "Join an existing game", minArgs: 1},
	cmdMove: {
		name: "move", usage: "move <row> <col>", minArgs: 2,
		description: "Make a move (row and column can be numbers or letters A-Z)",
	},
	cmdState: {name: "state", usage: "state [game_id]", description: "Get the state of your game or of the given one"},
	cmdList:  {name: "list", usage: "list", description: "List all active games"},
	cmdHelp:  {name: "help", usage: "help", description: "Show this help"},
	cmdStop:  {name: "stop", usage: "stop", description: "Stop the server"},
}

type commandHandler func(that *Session, ctx context.Context, args []string) string

var commandHandlers = map[commandKind]commandHandler{
	cmdCreate: (*Session).handleCreate,
	cmdAI:     (*Session).handleAI,
	cmdJoin:   (*Session).handleJoin,
	cmdMove:   (*Session).handleMove,
	cmdState:  (*Session).handleState,
	cmdList:   (*Session).handleList,
	cmdHelp:   (*Session).handleHelp,
	cmdStop:   (*Session).handleStop,
}

func lookupCommand(name string) (commandKind, bool) {
	for kind, spec := range commandSpecs {
		if spec.name == name {
			return commandKind(kind), true
		}
	}

	return 0, false
}

// dispatch runs one input line and returns the reply. An empty reply sends nothing.
func (that *Session) dispatch(ctx context.Context, line string) string {
	name, args := parseLine(line)

	kind, ok := lookupCommand(name)
	if !ok {
		return msgUnknownCommand
	}

	spec := commandSpecs[kind]
	if len(args) < spec.minArgs {
		return "Usage: " + spec.usage
	}

	return commandHandlers[kind](that, ctx, args)
}

func parseGameSettings(args []string) (int, int, bool) {
	size, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, false
	}

	timeControl, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, false
	}

	return size, timeControl, true
}

func (that *Session) settingsError(err error) string {
	switch {
	case errors.Is(err, apperror.ErrInvalidBoardSize):
		return msgInvalidBoardSize
	case errors.Is(err, apperror.ErrInvalidTimeLimit):
		return msgInvalidTimeLimit
	default:
		that.logger.Error("failed to create game", "error", err)
		return "Error processing command: " + err.Error()
	}
}

func (that *Session) handleCreate(_ context.Context, args []string) string {
	size, timeControl, ok := parseGameSettings(args)
	if !ok {
		return "Invalid number format. Usage: " + commandSpecs[cmdCreate].usage
	}

	game, err := that.hub.games.CreateGame(size, timeControl)
	if err != nil {
		return that.settingsError(err)
	}

	if _, _, err = that.hub.games.JoinGame(game.ID(), that.player); err != nil {
		that.logger.Error("creator could not take the first seat", "gameID", game.ID(), "error", err)
		return msgJoinFailed
	}

	that.enterGame(game.ID())

	return fmt.Sprintf("Game created successfully. Game ID: %s\nYou are Player 1 (X). Waiting for another player to join.\n", game.ID()) +
		renderGameInfo(game.Snapshot())
}

func (that *Session) handleAI(_ context.Context, args []string) string {
	size, timeControl, ok := parseGameSettings(args)
	if !ok {
		return "Invalid number format. Usage: " + commandSpecs[cmdAI].usage
	}

	game, err := that.hub.games.CreateAIGame(size, timeControl, that.player)
	if err != nil {
		return that.settingsError(err)
	}

	that.enterGame(game.ID())

	return fmt.Sprintf("AI game created successfully. Game ID: %s\nYou are Player 1 (X). Game is starting!\n", game.ID()) +
		renderPlayerView(game.Snapshot(), that.player)
}

func (that *Session) handleJoin(_ context.Context, args []string) string {
	gameID := args[0]

	game, side, err := that.hub.games.JoinGame(gameID, that.player)
	if err != nil {
		that.logger.Info("join rejected", "gameID", gameID, "error", err)
		return msgJoinFailed
	}

	that.enterGame(gameID)
	snapshot := game.Snapshot()

	if side == entity.SideA {
		return "Joined game successfully. Waiting for another player to join.\n" + renderGameInfo(snapshot)
	}

	creator := snapshot.Player(entity.SideA)
	that.hub.Notify(creator, fmt.Sprintf("Player joined your game: %s\nGame starting! You are Player 1 (X). You go first!\n", gameID)+
		renderPlayerView(snapshot, creator))

	return "Joined game successfully! You are Player 2 (O). Wait for Player 1's move.\n" + renderPlayerView(snapshot, that.player)
}

func (that *Session) handleMove(_ context.Context, args []string) string {
	gameID := that.currentGame()
	if gameID == "" {
		return msgNotInGame
	}

	row, rowOK := parseCoordinate(args[0])
	col, colOK := parseCoordinate(args[1])
	if !rowOK || !colOK {
		return msgInvalidCoordinate
	}

	game, endedNow := that.hub.games.CheckClock(gameID)
	if game == nil {
		return msgGameNotFound
	}

	if endedNow {
		return that.timedOut(game.Snapshot())
	}

	if game.IsFinished() {
		return endedMessage("Cannot make a move. Game has ended.", game.Snapshot())
	}

	_, err := that.hub.games.MakeMove(gameID, that.player, row, col)
	switch {
	case errors.Is(err, apperror.ErrTimeExpired):
		return that.timedOut(game.Snapshot())
	case errors.Is(err, apperror.ErrGameFinished):
		return endedMessage("Cannot make a move. Game has ended.", game.Snapshot())
	case err != nil:
		return fmt.Sprintf("Invalid move: %s\n", ruleViolation(err)) + renderPlayerView(game.Snapshot(), that.player)
	}

	snapshot := game.Snapshot()
	opponent := snapshot.Player(snapshot.SideOf(that.player).Opponent())

	if snapshot.IsFinished() {
		that.hub.Notify(opponent, winMessage(snapshot))
		return "Congratulations! You have won the game!\n" + renderBoard(snapshot)
	}

	that.hub.Notify(opponent, msgOpponentMoved+renderPlayerView(snapshot, opponent))

	return "Move accepted:\n" + renderPlayerView(snapshot, that.player)
}

// timedOut answers a move that found the mover's clock at zero and tells the opponent.
func (that *Session) timedOut(snapshot *entity.GameSnapshot) string {
	opponent := snapshot.Player(snapshot.SideOf(that.player).Opponent())
	that.hub.Notify(opponent, timeoutPush(snapshot))

	return endedMessage("Time has expired!", snapshot)
}

func ruleViolation(err error) string {
	for _, sentinel := range []error{
		apperror.ErrNotYourTurn,
		apperror.ErrCellOccupied,
		apperror.ErrOutOfBounds,
		apperror.ErrGameIsNotStarted,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return err.Error()
}

func (that *Session) handleState(ctx context.Context, args []string) string {
	gameID := that.currentGame()
	if len(args) > 0 {
		gameID = args[0]
	}

	if gameID == "" {
		return msgNotInGame
	}

	game, endedNow := that.hub.games.CheckClock(gameID)
	if game == nil {
		result, err := that.hub.games.Result(ctx, gameID)
		if err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				that.logger.Error("failed to read archived result", "gameID", gameID, "error", err)
			}

			return msgGameNotFound
		}

		return renderResult(result)
	}

	snapshot := game.Snapshot()
	if endedNow {
		that.hub.notifyTimeout(snapshot)
	}

	switch {
	case snapshot.IsFinished():
		return endedMessage("Game has ended.", snapshot)
	case snapshot.IsWaiting():
		return renderGameInfo(snapshot)
	default:
		return renderPlayerView(snapshot, that.player)
	}
}

func (that *Session) handleList(_ context.Context, _ []string) string {
	return renderGameList(that.hub.games.List())
}

func (that *Session) handleHelp(_ context.Context, _ []string) string {
	var sb strings.Builder

	sb.WriteString("Available commands:\n")
	for _, spec := range commandSpecs {
		sb.WriteString(spec.usage + " - " + spec.description + "\n")
	}

	return sb.String()
}

// handleStop replies through the shutdown broadcast that reaches every session.
func (that *Session) handleStop(_ context.Context, _ []string) string {
	that.logger.Info("stop command received, shutting down server")
	that.hub.RequestStop()

	return ""
}
