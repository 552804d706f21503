package storagefx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/0x5457/oas-index/internal/storage/memory"
	"github.com/0x5457/oas-index/internal/storage/sqlite"
	"github.com/0x5457/oas-index/internal/storage/sqlvec"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *configfx.Config
	Logger    *zap.Logger `optional:"true"`
}

// NewBackend opens the configured vector database and closes it on stop
func NewBackend(params Params) (storage.Backend, error) {
	backend, err := open(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		params.Logger.Debug("vector store opened",
			zap.String("backend", params.Config.Backend),
			zap.String("path", params.Config.DBPath),
		)
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return backend.Close()
		},
	})
	return backend, nil
}

func open(cfg *configfx.Config) (storage.Backend, error) {
	if cfg.Backend == configfx.BackendMemory {
		return memory.New(), nil
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("database path must be specified")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	switch cfg.Backend {
	case configfx.BackendSQLite:
		return sqlite.New(cfg.DBPath)
	case configfx.BackendSQLVec:
		return sqlvec.New(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewBackend),
)
