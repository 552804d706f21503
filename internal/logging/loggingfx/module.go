package loggingfx

import (
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewLogger builds the process logger at the configured level
func NewLogger(config *configfx.Config) (*zap.Logger, error) {
	return logging.New(config.LogLevel)
}

// EventLogger routes fx's own lifecycle events through zap
func EventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}

// Module provides the logger
var Module = fx.Module("logging",
	fx.Provide(NewLogger),
)
