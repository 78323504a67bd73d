package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/chat"
	"github.com/moatasem1234/madrasati/internal/config"
	"github.com/moatasem1234/madrasati/internal/directory"
	"github.com/moatasem1234/madrasati/internal/logger"
	"github.com/moatasem1234/madrasati/internal/session"
	"github.com/moatasem1234/madrasati/internal/state"
)

// app bundles the wired client components every command needs.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *gorm.DB
	sessions *session.Store
	api      *api.Client
	store    *cache.Store
	chat     *chat.Client
	dir      *directory.Client
}

// appFromConfig loads the config and wires the transport, session, state,
// and cache layers. The persisted session is restored when still valid.
func appFromConfig(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := state.Open(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(db, log)
	apiClient, err := api.New(api.Opts{
		BaseURL: cfg.ServerURL,
		Tokens:  sessions,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	sessions.AttachClient(apiClient)

	if err := sessions.Restore(); err != nil {
		log.Warn().Err(err).Msg("failed to restore session")
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		sessions: sessions,
		api:      apiClient,
		store:    cache.New(log),
		chat:     chat.NewClient(apiClient),
		dir:      directory.NewClient(apiClient),
	}, nil
}

// requireAuth returns the current principal or an error telling the user
// to log in.
func (a *app) requireAuth() (*session.Principal, error) {
	p := a.sessions.Principal()
	if p == nil {
		return nil, fmt.Errorf("not logged in, run 'madrasati login' first")
	}
	return p, nil
}
