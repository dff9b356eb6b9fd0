package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rocketscienceinc/hexgame-server/internal/config"
	"github.com/rocketscienceinc/hexgame-server/internal/repository"
	"github.com/rocketscienceinc/hexgame-server/internal/repository/storage"
	"github.com/rocketscienceinc/hexgame-server/internal/session"
	"github.com/rocketscienceinc/hexgame-server/internal/usecase"
	"github.com/rocketscienceinc/hexgame-server/transport/rest"
	"github.com/rocketscienceinc/hexgame-server/transport/tcp"
	"github.com/rocketscienceinc/hexgame-server/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until a signal or the stop command.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	results, closeArchive, err := openArchive(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeArchive()

	manager := usecase.NewGameManager(logger, results, usecase.Settings{
		ThinkingDelay:   conf.AIThinkingDelay,
		FinishedGameTTL: conf.FinishedGameTTL,
		CleanupInterval: conf.CleanupInterval,
	})

	hub := session.NewHub(logger, manager, session.Settings{ClockCheckInterval: conf.ClockCheckInterval})
	hub.OnStop(cancel)
	manager.SetObserver(hub)

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	run := func(name, port string, start func(context.Context, string) error) {
		if port == "" {
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			log.Info("Starting "+name+" server", "port", port)
			if startErr := start(ctx, port); startErr != nil {
				log.Error(name+" server error", "error", startErr)
				errCh <- fmt.Errorf("%s server error: %w", name, startErr)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.Run(ctx)
	}()

	run("TCP", conf.TCPPort, tcp.New(logger, hub).Start)
	run("WebSocket", conf.WSPort, websocket.New(logger, hub).Start)
	run("HTTP", conf.HTTPPort, rest.New(logger, manager).Start)

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	cancel()
	hub.Shutdown()
	manager.Shutdown()
	wg.Wait()

	return err
}

// openArchive connects the result store chosen by the archive driver.
func openArchive(ctx context.Context, log *slog.Logger, conf *config.Config) (repository.ResultRepository, func(), error) {
	switch conf.Archive.Driver {
	case config.ArchiveRedis:
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		log.Info("Archiving finished games to redis", "addr", redisAddrString)

		return repository.NewRedisResultRepository(redisStorage.Connection, conf.Archive.ResultTTL), func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}, nil

	case config.ArchiveSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Close()
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		log.Info("Archiving finished games to sqlite", "path", conf.SQLiteStoragePath)

		return repository.NewSQLiteResultRepository(sqliteStorage.Connection), func() {
			if err = sqliteStorage.Close(); err != nil {
				log.Error("could not close sqlite storage", "error", err)
			}
		}, nil

	default:
		return nil, func() {}, nil
	}
}
