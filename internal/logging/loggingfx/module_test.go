package loggingfx

import (
	"context"
	"testing"

	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestLoggingModule(t *testing.T) {
	var log *zap.Logger
	app := fx.New(
		configfx.Module,
		Module,
		fx.Supply(fx.Annotate("warn", fx.ResultTags(`name:"logLevel"`))),
		fx.WithLogger(EventLogger),
		fx.Populate(&log),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
}
