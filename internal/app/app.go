// Package app wires configuration into the running collaborators shared by
// the HTTP server, the MCP server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"bradboard/internal/config"
	"bradboard/internal/db"
	"bradboard/internal/engine"
	"bradboard/internal/identity"
	"bradboard/internal/llm"
	"bradboard/internal/migrate"
	"bradboard/internal/smartcreate"
)

type App struct {
	Config        *config.Config
	DB            *sql.DB
	Engine        engine.Engine
	SmartCreate   *smartcreate.Service
	Authenticator identity.Authenticator
	Provider      identity.Provider
	Logger        *zap.Logger
}

// Open opens and migrates the workspace database and builds every collaborator
// from cfg. Callers own the returned App and must Close it.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.EnsureWorkspace(cfg.Database.Workspace); err != nil {
		return nil, fmt.Errorf("ensure workspace: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: cfg.Database.Workspace})
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		logger.Info("applied migrations", zap.Int("count", applied), zap.String("db", db.Path(cfg.Database.Workspace)))
	}

	e := engine.New(conn)
	e.Logger = logger.Named("engine")

	model, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Project:  cfg.LLM.Project,
		Location: cfg.LLM.Location,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if g, ok := model.(*llm.Gemini); ok {
		g.Logger = logger.Named("llm")
	}
	svc := smartcreate.New(smartcreate.EngineStore{Engine: e}, model)
	svc.ContextProjects = cfg.LLM.ContextProjects
	svc.Logger = logger.Named("smartcreate")

	a := &App{Config: cfg, DB: conn, Engine: e, SmartCreate: svc, Logger: logger}
	a.Authenticator, a.Provider = identityFor(cfg)
	return a, nil
}

// identityFor prefers local JWT verification and falls back to asking the
// provider, so tokens keep working when only one of the two is configured.
func identityFor(cfg *config.Config) (identity.Authenticator, identity.Provider) {
	var chain identity.Chain
	var provider identity.Provider
	if cfg.Identity.JWTSecret != "" {
		chain = append(chain, identity.JWTVerifier{Secret: cfg.Identity.JWTSecret})
	}
	if cfg.Identity.URL != "" {
		gt := identity.NewGoTrue(cfg.Identity.URL, cfg.Identity.AnonKey)
		chain = append(chain, gt)
		provider = gt
	}
	if len(chain) == 0 {
		return nil, provider
	}
	return chain, provider
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
