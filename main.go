package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"

	"github.com/alimasry/go-live-edit/config"
	"github.com/alimasry/go-live-edit/registry"
	"github.com/alimasry/go-live-edit/server"
	"github.com/alimasry/go-live-edit/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load config")
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx := context.Background()

	st, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer cleanup()

	reg, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize component registry")
	}

	hub := server.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	mux := http.NewServeMux()
	server.NewHandler(hub, st, reg, logger).Routes(mux)

	logger.Info().
		Str("addr", cfg.Addr).
		Str("store", cfg.Store.Backend).
		Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// buildStore constructs the layout store for the configured backend.
// Firestore is wrapped in the write-behind cache to keep draft saves
// off the request path.
func buildStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.LayoutStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		st, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.Store.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		cached := store.NewCachedStore(store.NewFirestoreStore(client), cfg.Store.FlushInterval.Std(), logger)
		return cached, func() {
			cached.Close()
			client.Close()
		}, nil

	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

// buildRegistry loads the component registry, from a YAML file with
// hot reload when configured, else the built-in set.
func buildRegistry(ctx context.Context, cfg config.Config, logger zerolog.Logger) (registry.Registry, error) {
	if cfg.RegistryPath == "" {
		return registry.Builtin(), nil
	}
	reg, err := registry.NewFileRegistry(cfg.RegistryPath, logger)
	if err != nil {
		return nil, err
	}
	if err := reg.Watch(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}
