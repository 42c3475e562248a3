package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/logging"
	"github.com/advanced-rising/vanillameta/pkg/retry"
)

type registryFactory struct {
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewHandleFactory returns a factory that opens handles through the global
// driver and adapter tables. Transient open failures are retried per retryCfg.
func NewHandleFactory(retryCfg *retry.Config, logger *zap.Logger) HandleFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{
		retryCfg: retryCfg,
		logger:   logger,
	}
}

func (f *registryFactory) Open(ctx context.Context, res Resolution) (Handle, error) {
	reg, ok := lookup(res.Client, res.Adapter)
	if !ok {
		return nil, fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnsupportedEngine, res.Client)
	}

	handle, err := retry.DoIfRetryable(ctx, f.retryCfg, func() (Handle, error) {
		return reg.Open(ctx, res.Identity(), res.Config)
	})
	if err != nil {
		f.logger.Warn("failed to open database handle",
			zap.String("engine", res.Kind.String()),
			zap.String("driver", res.Client),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("open %s handle: %w", res.Kind, err)
	}
	return handle, nil
}

func (f *registryFactory) Engines() []EngineInfo {
	return RegisteredEngines()
}

// Ensure registryFactory implements HandleFactory at compile time.
var _ HandleFactory = (*registryFactory)(nil)
