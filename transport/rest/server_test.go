package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
	"github.com/rocketscienceinc/hexgame-server/internal/usecase"
)

type mockResults struct {
	mock.Mock
}

func (that *mockResults) Save(ctx context.Context, result *entity.GameResult) error {
	return that.Called(ctx, result).Error(0)
}

func (that *mockResults) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	args := that.Called(ctx, id)
	result, _ := args.Get(0).(*entity.GameResult)

	return result, args.Error(1)
}

func newTestServer(t *testing.T) (*httptest.Server, *usecase.GameManager, *mockResults) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	results := &mockResults{}
	manager := usecase.NewGameManager(logger, results, usecase.Settings{})
	t.Cleanup(manager.Shutdown)

	srv := httptest.NewServer(New(logger, manager).Handler())
	t.Cleanup(srv.Close)

	return srv, manager, results
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url) //nolint: noctx // test request
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestServer_Ping(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/ping")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestServer_ListGames(t *testing.T) {
	srv, manager, results := newTestServer(t)
	results.On("GetByID", mock.Anything, mock.Anything).Return(nil, apperror.ErrNotFound)

	// Given: one started game
	game, err := manager.CreateGame(7, 60)
	require.NoError(t, err)
	_, _, err = manager.JoinGame(game.ID(), entity.Human("alice"))
	require.NoError(t, err)
	_, _, err = manager.JoinGame(game.ID(), entity.Human("bob"))
	require.NoError(t, err)

	// When: the list is requested
	resp, body := get(t, srv.URL+"/games")

	// Then: it is described without the board
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []gameView
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 1)
	assert.Equal(t, game.ID(), views[0].ID)
	assert.Equal(t, 7, views[0].Size)
	assert.Equal(t, entity.StatusOngoing, views[0].Status)
	assert.Equal(t, [2]string{"alice", "bob"}, views[0].Players)
	assert.Equal(t, 1, views[0].Turn)
	assert.Empty(t, views[0].Board)
}

func TestServer_GetGame(t *testing.T) {
	t.Run("Live game includes the board", func(t *testing.T) {
		srv, manager, results := newTestServer(t)
		results.On("GetByID", mock.Anything, mock.Anything).Return(nil, apperror.ErrNotFound)

		game, err := manager.CreateGame(5, 60)
		require.NoError(t, err)
		_, _, err = manager.JoinGame(game.ID(), entity.Human("alice"))
		require.NoError(t, err)
		_, _, err = manager.JoinGame(game.ID(), entity.Human("bob"))
		require.NoError(t, err)
		_, err = manager.MakeMove(game.ID(), entity.Human("alice"), 0, 1)
		require.NoError(t, err)

		resp, body := get(t, srv.URL+"/games/"+game.ID())

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var view gameView
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Equal(t, ".X...", view.Board[0])
		assert.Equal(t, 1, view.Moves)
		assert.Equal(t, 2, view.Turn)
	})

	t.Run("Evicted game comes from the archive", func(t *testing.T) {
		srv, _, results := newTestServer(t)
		stored := &entity.GameResult{ID: "123456", Size: 5, Winner: "alice", WinnerSeat: 1, Reason: entity.ReasonTimeout}
		results.On("GetByID", mock.Anything, "123456").Return(stored, nil).Once()

		resp, body := get(t, srv.URL+"/games/123456")

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result entity.GameResult
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, "alice", result.Winner)
		assert.Equal(t, entity.ReasonTimeout, result.Reason)
		results.AssertExpectations(t)
	})

	t.Run("Unknown game is 404", func(t *testing.T) {
		srv, _, results := newTestServer(t)
		results.On("GetByID", mock.Anything, "000000").Return(nil, apperror.ErrNotFound).Once()

		resp, _ := get(t, srv.URL+"/games/000000")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
