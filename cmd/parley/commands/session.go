package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dyluth/parley/internal/config"
	"github.com/dyluth/parley/internal/logging"
	"github.com/dyluth/parley/internal/printer"
	"github.com/dyluth/parley/pkg/inputstore"
	"github.com/dyluth/parley/pkg/runinput"
	"github.com/spf13/cobra"
)

// session is what every store-backed command needs: the loaded config, a
// client bound to --run, and a printer over the command's writers.
type session struct {
	cfg     *config.ParleyConfig
	client  *runinput.Client
	logger  *slog.Logger
	printer *printer.Printer
	close   func()
}

// openStore connects to the configured backend. Package var so tests can
// substitute a store.
var openStore = func(ctx context.Context, sc config.StoreConfig) (runinput.Store, func(), error) {
	switch sc.Backend {
	case config.BackendRedis:
		store, err := inputstore.NewRedisStoreFromURL(sc.RedisURL, sc.Namespace)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", sc.RedisURL, err)
		}
		return store, func() { store.Close() }, nil

	case config.BackendPostgres:
		store, err := inputstore.NewPostgresStore(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendMemory:
		return inputstore.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", sc.Backend)
	}
}

func openSession(cmd *cobra.Command) (*session, error) {
	p := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, p.Error(
				"config not found",
				fmt.Sprintf("No configuration file at %s.", configPath),
				[]string{"Create one:\n  parley init", "Point at an existing file:\n  parley --config path/to/parley.yml"},
			)
		}
		return nil, p.Error("invalid configuration", err.Error(), nil)
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, p.ErrorWithContext(
			"store unavailable",
			err.Error(),
			map[string]string{"Backend": cfg.Store.Backend},
			[]string{"Check the store settings in " + configPath},
		)
	}

	client, err := runinput.NewClient(store,
		runinput.WithRunID(runID),
		runinput.WithLogger(logger))
	if err != nil {
		closeStore()
		return nil, err
	}

	return &session{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		printer: p,
		close:   closeStore,
	}, nil
}

// requireRun fails with a helpful message when the command needs --run.
func (s *session) requireRun(action string) error {
	if s.client.RunID() != "" {
		return nil
	}
	return s.printer.Error(
		"no run id",
		fmt.Sprintf("Cannot %s without a run.", action),
		[]string{"Pass --run <run-id>", "Set PARLEY_RUN_ID"},
	)
}

// input builds a dynamic RunInput from a declared input type.
func (s *session) input(name string) (*runinput.RunInput[map[string]any], error) {
	schema, err := s.cfg.Schema(name)
	if err != nil {
		return nil, s.printer.Error(
			fmt.Sprintf("unknown input type '%s'", name),
			err.Error(),
			[]string{"Declare it under inputs: in " + configPath},
		)
	}
	return runinput.FromSchema[map[string]any](schema), nil
}

// keysetFromFlags resolves --key or --pause-key into a keyset.
func keysetFromFlags(p *printer.Printer, baseKey, pauseKey, stateName string) (runinput.Keyset, error) {
	switch {
	case baseKey != "" && pauseKey != "":
		return runinput.Keyset{}, p.Error("conflicting flags", "Use either --key or --pause-key, not both.", nil)
	case baseKey != "":
		return runinput.KeysetFromBaseKey(baseKey), nil
	case pauseKey != "":
		return runinput.KeysetFromPausedState(runinput.RunState{
			Type:     runinput.StatePaused,
			Name:     stateName,
			PauseKey: pauseKey,
		})
	default:
		return runinput.Keyset{}, p.Error(
			"no keyset",
			"A base key or pause key is required.",
			[]string{"Derive from a base key:\n  --key approval", "Derive from a pause:\n  --pause-key <pause-key>"},
		)
	}
}
