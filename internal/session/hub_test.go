package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
	"github.com/rocketscienceinc/hexgame-server/internal/usecase"
)

const (
	welcomePrefix = "Connected to Hex Game Server. Your client ID: "
	waitTimeout   = 2 * time.Second
)

var gameIDPattern = regexp.MustCompile(`Game ID: (\d{6})`)

type memConn struct {
	in     chan string
	out    chan string
	closed chan struct{}
	once   sync.Once
}

func newMemConn() *memConn {
	return &memConn{
		in:     make(chan string, 16),
		out:    make(chan string, 256),
		closed: make(chan struct{}),
	}
}

func (that *memConn) ReadLine() (string, error) {
	select {
	case line := <-that.in:
		return line, nil
	case <-that.closed:
		return "", io.EOF
	}
}

func (that *memConn) WriteLine(line string) error {
	select {
	case <-that.closed:
		return net.ErrClosed
	case that.out <- line:
		return nil
	}
}

func (that *memConn) Close() error {
	that.once.Do(func() { close(that.closed) })
	return nil
}

type client struct {
	t    *testing.T
	conn *memConn
	id   string
}

func connect(t *testing.T, hub *Hub) *client {
	t.Helper()

	conn := newMemConn()
	go hub.Serve(context.Background(), conn)

	c := &client{t: t, conn: conn}
	c.id = strings.TrimPrefix(c.expect(welcomePrefix), welcomePrefix)

	return c
}

func (that *client) player() entity.PlayerID {
	return entity.Human(that.id)
}

func (that *client) send(line string) {
	that.conn.in <- line
}

// expect skips messages until one contains substr.
func (that *client) expect(substr string) string {
	that.t.Helper()

	timeout := time.After(waitTimeout)
	for {
		select {
		case line := <-that.conn.out:
			if strings.Contains(line, substr) {
				return line
			}
		case <-timeout:
			that.t.Fatalf("no message containing %q", substr)
			return ""
		}
	}
}

// expectEach waits until every substring has shown up, in any order.
func (that *client) expectEach(substrs ...string) {
	that.t.Helper()

	pending := append([]string(nil), substrs...)
	timeout := time.After(waitTimeout)

	for len(pending) > 0 {
		select {
		case line := <-that.conn.out:
			for i, substr := range pending {
				if strings.Contains(line, substr) {
					pending = append(pending[:i], pending[i+1:]...)
					break
				}
			}
		case <-timeout:
			that.t.Fatalf("messages never arrived: %q", pending)
			return
		}
	}
}

// drain returns whatever is still queued without waiting.
func (that *client) drain() []string {
	var lines []string
	for {
		select {
		case line := <-that.conn.out:
			lines = append(lines, line)
		default:
			return lines
		}
	}
}

// reply returns the next message.
func (that *client) reply() string {
	that.t.Helper()

	select {
	case line := <-that.conn.out:
		return line
	case <-time.After(waitTimeout):
		that.t.Fatal("no reply")
		return ""
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

type memResults struct {
	mu      sync.Mutex
	results map[string]*entity.GameResult
}

func (that *memResults) Save(_ context.Context, result *entity.GameResult) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.results[result.ID] = result

	return nil
}

func (that *memResults) GetByID(_ context.Context, id string) (*entity.GameResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	result, ok := that.results[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	return result, nil
}

type hubFixture struct {
	hub     *Hub
	manager *usecase.GameManager
	clock   *fakeClock
	results *memResults
}

func newHubFixture(t *testing.T, clockCheck time.Duration) *hubFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := newFakeClock()
	results := &memResults{results: make(map[string]*entity.GameResult)}

	manager := usecase.NewGameManager(logger, results, usecase.Settings{
		ThinkingDelay:   10 * time.Millisecond,
		FinishedGameTTL: time.Minute,
	}, usecase.WithClock(clock.Now))

	hub := NewHub(logger, manager, Settings{ClockCheckInterval: clockCheck})
	manager.SetObserver(hub)

	t.Cleanup(func() {
		hub.Shutdown()
		manager.Shutdown()
	})

	return &hubFixture{hub: hub, manager: manager, clock: clock, results: results}
}

// startGame creates a game by alice and lets bob join it.
func (that *hubFixture) startGame(t *testing.T, alice, bob *client, size, timeControl int) string {
	t.Helper()

	alice.send("create " + strconv.Itoa(size) + " " + strconv.Itoa(timeControl))
	created := alice.expect("Game created successfully")

	match := gameIDPattern.FindStringSubmatch(created)
	require.Len(t, match, 2)
	gameID := match[1]

	bob.send("join " + gameID)
	bob.expect("Joined game successfully! You are Player 2 (O)")
	alice.expect("[Server]: Player joined your game: " + gameID)

	return gameID
}

func TestHub_CreateJoinMove(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)
	bob := connect(t, fx.hub)

	// Given: alice creates a game
	alice.send("create 5 60")
	created := alice.reply()
	require.Contains(t, created, "Game created successfully. Game ID: ")
	assert.Contains(t, created, "You are Player 1 (X). Waiting for another player to join.")

	match := gameIDPattern.FindStringSubmatch(created)
	require.Len(t, match, 2)
	gameID := match[1]

	// When: bob joins it
	bob.send("join " + gameID)

	// Then: both see player 1 to move
	joined := bob.reply()
	assert.Contains(t, joined, "Joined game successfully! You are Player 2 (O). Wait for Player 1's move.")
	assert.Contains(t, joined, "Waiting for opponent's move...")

	pushed := alice.reply()
	assert.True(t, strings.HasPrefix(pushed, "[Server]: Player joined your game: "+gameID))
	assert.Contains(t, pushed, "Game starting! You are Player 1 (X). You go first!")
	assert.Contains(t, pushed, "IT'S YOUR TURN!")

	// When: alice moves
	alice.send("move 2 2")

	// Then: bob is told it is his turn
	accepted := alice.reply()
	assert.True(t, strings.HasPrefix(accepted, "Move accepted:"))
	assert.Contains(t, accepted, "Waiting for opponent's move...")

	moved := bob.reply()
	assert.True(t, strings.HasPrefix(moved, "[Server]: Opponent made a move. Your turn now!"))
	assert.Contains(t, moved, "IT'S YOUR TURN!")

	// When: bob moves with letters
	bob.send("move A A")

	// Then: the letter form lands on (0,0)
	assert.True(t, strings.HasPrefix(bob.reply(), "Move accepted:"))
	alice.expect("[Server]: Opponent made a move. Your turn now!")

	game, ok := fx.manager.Game(gameID)
	require.True(t, ok)
	snapshot := game.Snapshot()
	assert.Equal(t, entity.SideA, snapshot.Board.At(2, 2))
	assert.Equal(t, entity.SideB, snapshot.Board.At(0, 0))
	assert.Equal(t, alice.player(), snapshot.Players[0])
	assert.Equal(t, bob.player(), snapshot.Players[1])
}

func TestHub_Win(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)
	bob := connect(t, fx.hub)
	gameID := fx.startGame(t, alice, bob, 5, 600)

	// Given: alice fills row 0 while bob plays row 4
	for col := range 4 {
		alice.send("move 0 " + strconv.Itoa(col))
		alice.expect("Move accepted:")
		bob.send("move 4 " + strconv.Itoa(col))
		bob.expect("Move accepted:")
	}

	// When: alice completes the left-right chain
	alice.send("move 0 4")

	// Then: alice wins and bob is told
	assert.True(t, strings.HasPrefix(alice.expect("Congratulations"), "Congratulations! You have won the game!"))
	bob.expect("[Server]: Game Over! Player 1 (X) has won the game!")

	bob.send("move 3 3")
	assert.True(t, strings.HasPrefix(bob.reply(), "Cannot make a move. Game has ended. Player 1 (X) has won!"))

	alice.send("state " + gameID)
	assert.True(t, strings.HasPrefix(alice.reply(), "Game has ended. Player 1 (X) has won!"))
}

func TestHub_AIGame(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)

	// Given: an AI game
	alice.send("ai 5 3600")
	created := alice.reply()
	require.Contains(t, created, "AI game created successfully. Game ID: ")
	assert.Contains(t, created, "You are Player 1 (X). Game is starting!")
	assert.Contains(t, created, "IT'S YOUR TURN!")

	match := gameIDPattern.FindStringSubmatch(created)
	require.Len(t, match, 2)

	// When: the human plays first
	alice.send("move 0 0")

	// Then: the AI answers on its own with exactly one stone
	alice.expectEach("Move accepted:", "[Server]: Opponent made a move. Your turn now!")

	game, ok := fx.manager.Game(match[1])
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	snapshot := game.Snapshot()
	assert.Len(t, snapshot.Moves, 2)
	assert.Equal(t, entity.SideB, snapshot.Moves[1].Side)
	assert.Equal(t, entity.SideA, snapshot.Turn)
}

func TestHub_Disconnect(t *testing.T) {
	t.Run("Leaving a running game forfeits it", func(t *testing.T) {
		fx := newHubFixture(t, time.Hour)
		alice := connect(t, fx.hub)
		bob := connect(t, fx.hub)
		gameID := fx.startGame(t, alice, bob, 5, 60)

		// When: bob drops the connection
		require.NoError(t, bob.conn.Close())

		// Then: alice wins exactly once
		alice.expect("[Server]: Your opponent has disconnected. You win the game!")

		game, ok := fx.manager.Game(gameID)
		require.True(t, ok)
		snapshot := game.Snapshot()
		assert.Equal(t, alice.player(), snapshot.WinnerID)
		assert.Equal(t, entity.ReasonForfeit, snapshot.Reason)

		require.Eventually(t, func() bool { return fx.hub.Len() == 1 }, waitTimeout, 5*time.Millisecond)
	})

	t.Run("Leaving a waiting game frees its id", func(t *testing.T) {
		fx := newHubFixture(t, time.Hour)
		alice := connect(t, fx.hub)

		alice.send("create 5 60")
		match := gameIDPattern.FindStringSubmatch(alice.reply())
		require.Len(t, match, 2)

		require.NoError(t, alice.conn.Close())

		require.Eventually(t, func() bool {
			_, ok := fx.manager.Game(match[1])
			return !ok
		}, waitTimeout, 5*time.Millisecond)
	})
}

func TestHub_SwitchingGames(t *testing.T) {
	t.Run("Leaving a running AI game forfeits it", func(t *testing.T) {
		fx := newHubFixture(t, time.Hour)
		alice := connect(t, fx.hub)

		// Given: alice is playing the AI
		alice.send("ai 5 3600")
		match := gameIDPattern.FindStringSubmatch(alice.reply())
		require.Len(t, match, 2)

		// When: she creates another game
		alice.send("create 5 60")
		alice.expect("Game created successfully")

		// Then: the AI game is over instead of hanging forever
		game, ok := fx.manager.Game(match[1])
		require.True(t, ok)
		snapshot := game.Snapshot()
		assert.Equal(t, entity.StatusFinished, snapshot.Status)
		assert.Equal(t, entity.ReasonForfeit, snapshot.Reason)
		assert.True(t, snapshot.WinnerID.IsAI())
	})

	t.Run("A running game against a person is left to its clock", func(t *testing.T) {
		fx := newHubFixture(t, time.Hour)
		alice := connect(t, fx.hub)
		bob := connect(t, fx.hub)
		gameID := fx.startGame(t, alice, bob, 5, 60)

		// When: alice walks away into a new game
		alice.send("create 5 60")
		alice.expect("Game created successfully")

		game, ok := fx.manager.Game(gameID)
		require.True(t, ok)
		assert.Equal(t, entity.StatusOngoing, game.Status())

		// Then: the janitor ends it on time and bob hears about it
		fx.clock.Advance(61 * time.Second)
		fx.manager.EvictFinished(context.Background())

		bob.expect("[Server]: Game ended due to time expiration! Player 2 wins!")
		assert.Equal(t, entity.StatusFinished, game.Status())
		assert.Equal(t, bob.player(), game.Snapshot().WinnerID)
	})
}

func TestHub_ProtocolErrors(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)

	tests := []struct {
		line string
		want string
	}{
		{line: "dance", want: "Unknown command. Type 'help' for available commands."},
		{line: "", want: "Unknown command. Type 'help' for available commands."},
		{line: "create", want: "Usage: create <board_size> <time_control_seconds>"},
		{line: "create x 60", want: "Invalid number format. Usage: create <board_size> <time_control_seconds>"},
		{line: "create 4 60", want: "Invalid board size. Choose between 5 and 19."},
		{line: "ai 5 10", want: "Invalid time control. Choose between 30 and 3600 seconds."},
		{line: "move 1 1", want: "You are not currently in any game. Please join a game first."},
		{line: "state", want: "You are not currently in any game. Please join a game first."},
		{line: "state 999999", want: "Game not found"},
		{line: "join 999999", want: "Failed to join game. Game might be full or not exist."},
	}

	for _, tt := range tests {
		alice.send(tt.line)
		assert.Equal(t, tt.want, alice.reply(), tt.line)
	}

	assert.Empty(t, fx.manager.List())

	// Given: a waiting game
	alice.send("create 5 60")
	alice.expect("Game created successfully")

	alice.send("move ? 1")
	assert.Equal(t, "Invalid row/column format. Use numbers or letters A-Z.", alice.reply())

	alice.send("move 1 1")
	assert.True(t, strings.HasPrefix(alice.reply(), "Invalid move: game is not started"))

	alice.send("join " + fx.manager.List()[0].ID)
	assert.Equal(t, "Failed to join game. Game might be full or not exist.", alice.reply())
}

func TestHub_RuleViolations(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)
	bob := connect(t, fx.hub)
	carol := connect(t, fx.hub)
	gameID := fx.startGame(t, alice, bob, 5, 60)

	bob.send("move 0 0")
	assert.True(t, strings.HasPrefix(bob.reply(), "Invalid move: it's not your turn"))

	alice.send("move 9 9")
	assert.True(t, strings.HasPrefix(alice.reply(), "Invalid move: cell is out of bounds"))

	alice.send("move 1 1")
	alice.expect("Move accepted:")
	bob.expect("[Server]: Opponent made a move.")

	bob.send("move B B")
	assert.True(t, strings.HasPrefix(bob.reply(), "Invalid move: cell is already occupied"))

	carol.send("join " + gameID)
	assert.Equal(t, "Failed to join game. Game might be full or not exist.", carol.reply())

	game, ok := fx.manager.Game(gameID)
	require.True(t, ok)
	assert.Equal(t, bob.player(), game.Player(entity.SideB))
}

func TestHub_Timeout(t *testing.T) {
	t.Run("Clock check ends the game and tells both players", func(t *testing.T) {
		fx := newHubFixture(t, 10*time.Millisecond)
		alice := connect(t, fx.hub)
		bob := connect(t, fx.hub)
		gameID := fx.startGame(t, alice, bob, 5, 30)

		// When: alice's clock runs out
		fx.clock.Advance(31 * time.Second)

		// Then: both are told bob won
		alice.expect("[Server]: Game ended due to time expiration! Player 2 wins!")
		bob.expect("[Server]: Game ended due to time expiration! Player 2 wins!")

		game, ok := fx.manager.Game(gameID)
		require.True(t, ok)
		snapshot := game.Snapshot()
		assert.Equal(t, bob.player(), snapshot.WinnerID)
		assert.Equal(t, entity.ReasonTimeout, snapshot.Reason)
		assert.Zero(t, snapshot.RemainingFor(entity.SideA))
	})

	t.Run("A late move finds the clock at zero", func(t *testing.T) {
		fx := newHubFixture(t, time.Hour)
		alice := connect(t, fx.hub)
		bob := connect(t, fx.hub)
		fx.startGame(t, alice, bob, 5, 30)

		fx.clock.Advance(31 * time.Second)

		alice.send("move 0 0")
		assert.True(t, strings.HasPrefix(alice.reply(), "Time has expired! Player 2 (O) has won!"))
		bob.expect("[Server]: Game ended due to time expiration! Player 2 wins!")
	})

	t.Run("State reads do not double charge the clock", func(t *testing.T) {
		fx := newHubFixture(t, time.Hour)
		alice := connect(t, fx.hub)
		bob := connect(t, fx.hub)
		fx.startGame(t, alice, bob, 5, 60)

		fx.clock.Advance(10 * time.Second)

		alice.send("state")
		first := alice.reply()
		alice.send("state")
		second := alice.reply()

		assert.Contains(t, first, "Your remaining time: 50s")
		assert.Equal(t, first, second)
	})
}

func TestHub_ListAndHelp(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)

	alice.send("create 7 60")
	match := gameIDPattern.FindStringSubmatch(alice.reply())
	require.Len(t, match, 2)

	alice.send("list")
	assert.Equal(t, "Active games:\nGame ID: "+match[1]+", Size: 7, Status: Waiting for players\n", alice.reply())

	alice.send("HELP")
	help := alice.reply()
	assert.True(t, strings.HasPrefix(help, "Available commands:\n"))
	for _, spec := range commandSpecs {
		assert.Contains(t, help, spec.usage+" - "+spec.description)
	}
}

func TestHub_StateFromArchive(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)
	bob := connect(t, fx.hub)
	gameID := fx.startGame(t, alice, bob, 5, 60)

	// Given: a forfeited game evicted to the archive
	require.NoError(t, bob.conn.Close())
	alice.expect("You win the game!")

	fx.clock.Advance(2 * time.Minute)
	require.Equal(t, 1, fx.manager.EvictFinished(context.Background()))

	// When: alice asks for its state
	alice.send("state " + gameID)

	// Then: the archived outcome is shown
	state := alice.reply()
	assert.Contains(t, state, "Game ID: "+gameID)
	assert.Contains(t, state, "Game status: Ended")
	assert.Contains(t, state, "Winner: "+alice.id+" (Player 1)")
	assert.Contains(t, state, "Ended by: forfeit")
}

func TestHub_Stop(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)
	bob := connect(t, fx.hub)

	// When: one peer sends stop
	alice.send("stop")

	// Then: every session is told and closed
	assert.Equal(t, "Server stopped", alice.reply())
	assert.Equal(t, "Server stopped", bob.reply())
	require.Eventually(t, func() bool { return fx.hub.Len() == 0 }, waitTimeout, 5*time.Millisecond)

	late := newMemConn()
	fx.hub.Serve(context.Background(), late)
	assert.Equal(t, "Server stopped", <-late.out)
}

func TestHub_ShutdownIsNotADisconnect(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	alice := connect(t, fx.hub)
	bob := connect(t, fx.hub)
	gameID := fx.startGame(t, alice, bob, 5, 60)

	// When: the server stops
	fx.hub.Shutdown()

	// Then: nobody wins by the other side's connection closing
	game, ok := fx.manager.Game(gameID)
	require.True(t, ok)
	assert.Equal(t, entity.StatusOngoing, game.Status())

	for _, c := range []*client{alice, bob} {
		lines := c.drain()
		assert.Equal(t, []string{msgServerStopped}, lines)
	}
}

func TestHub_StopIsAnnouncedOnce(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newMemConn()
	go fx.hub.Serve(ctx, conn)
	alice := &client{t: t, conn: conn}
	alice.expect(welcomePrefix)

	// When: the root context and the hub stop at the same time
	cancel()
	fx.hub.Shutdown()

	// Then: the peer hears about it exactly once
	assert.Equal(t, []string{msgServerStopped}, alice.drain())
}

func TestHub_OnStop(t *testing.T) {
	fx := newHubFixture(t, time.Hour)
	stopped := make(chan struct{})
	fx.hub.OnStop(func() { close(stopped) })

	alice := connect(t, fx.hub)
	alice.send("stop")

	select {
	case <-stopped:
	case <-time.After(waitTimeout):
		t.Fatal("stop hook was not called")
	}

	assert.Equal(t, 1, fx.hub.Len())
}
