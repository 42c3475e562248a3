package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/logging"
	"github.com/advanced-rising/vanillameta/pkg/metrics"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

// ConnectionService runs connectivity probes and ad-hoc queries against
// configured databases. Neither operation returns an error: every failure is
// reported through the status of the returned value.
type ConnectionService interface {
	// TestConnection opens a disposable handle, runs the engine's probe
	// statement and closes the handle. The registry is never touched.
	TestConnection(ctx context.Context, kind models.EngineKind, config map[string]any) models.TestResult

	// ExecuteQuery runs sqlText verbatim on the durable handle for id and
	// normalizes the result.
	ExecuteQuery(ctx context.Context, id int64, sqlText string) models.QueryResult

	// AddConnection registers a handle for id unless one already exists.
	AddConnection(ctx context.Context, id int64, kind models.EngineKind, config map[string]any) error

	// RemoveConnection unregisters the handle for id. No-op when absent.
	RemoveConnection(id int64) error

	// ConnectionExists reports whether a handle is registered for id.
	ConnectionExists(id int64) bool

	// RefreshConnection drops the handle for id so the next query reloads
	// its config from the store.
	RefreshConnection(id int64) error

	// ListEngines returns the engine catalog.
	ListEngines() []datasource.EngineInfo
}

// HandleRegistry is the subset of datasource.ConnectionRegistry the service uses.
type HandleRegistry interface {
	Exists(id int64) bool
	Add(ctx context.Context, id int64, kind models.EngineKind, config map[string]any) error
	Get(ctx context.Context, id int64) (datasource.Handle, error)
	Remove(id int64) datasource.Handle
}

type connectionService struct {
	resolver      *datasource.Resolver
	factory       datasource.HandleFactory
	registry      HandleRegistry
	normalizer    *datasource.Normalizer
	closeOnRemove bool
	logger        *zap.Logger
}

// NewConnectionService creates a connection service. With closeOnRemove the
// service closes handles it unregisters; otherwise they are left to the
// garbage collector and the driver's own idle handling.
func NewConnectionService(
	resolver *datasource.Resolver,
	factory datasource.HandleFactory,
	registry HandleRegistry,
	normalizer *datasource.Normalizer,
	closeOnRemove bool,
	logger *zap.Logger,
) ConnectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = datasource.NewNormalizer()
	}
	return &connectionService{
		resolver:      resolver,
		factory:       factory,
		registry:      registry,
		normalizer:    normalizer,
		closeOnRemove: closeOnRemove,
		logger:        logger.Named("connection"),
	}
}

func (s *connectionService) TestConnection(ctx context.Context, kind models.EngineKind, config map[string]any) (result models.TestResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic during connection test",
				zap.String("engine", kind.String()),
				zap.Any("panic", r))
			result = models.TestResult{Status: models.StatusError, Message: datasource.GenericErrorMessage}
		}
		metrics.ObserveConnectionTest(kind.String(), string(result.Status))
	}()

	res, err := s.resolver.Resolve(kind, config)
	if err != nil {
		return constructionFailure(err)
	}

	handle, err := s.factory.Open(ctx, res)
	if err != nil {
		s.logger.Info("Connection test could not open handle",
			zap.String("engine", kind.String()),
			zap.Any("config", logging.SanitizeConfig(config)),
			zap.String("error", logging.SanitizeError(err)))
		return constructionFailure(err)
	}
	defer func() {
		if err := handle.Close(); err != nil {
			s.logger.Warn("Failed to close test handle",
				zap.String("engine", kind.String()),
				zap.String("error", logging.SanitizeError(err)))
		}
	}()

	if _, err := handle.Run(ctx, datasource.ProbeSQL(res.Kind)); err != nil {
		s.logger.Info("Connection test probe failed",
			zap.String("engine", kind.String()),
			zap.String("error", logging.SanitizeError(err)))
		return models.TestResult{Status: models.StatusError, Message: datasource.ErrorMessage(err)}
	}

	s.logger.Info("Connection test successful", zap.String("engine", kind.String()))
	return models.TestResult{
		Status: models.StatusSuccess,
		Data:   map[string]string{"message": "success"},
	}
}

func constructionFailure(err error) models.TestResult {
	return models.TestResult{
		Status:  models.StatusError,
		Message: "connection could not be created: " + datasource.ErrorMessage(err),
	}
}

func (s *connectionService) ExecuteQuery(ctx context.Context, id int64, sqlText string) (result models.QueryResult) {
	executionID := uuid.New()
	start := time.Now()
	engine := "unresolved"

	logger := s.logger.With(
		zap.String("executionID", executionID.String()),
		zap.Int64("connectionID", id),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while executing query",
				zap.String("engine", engine),
				zap.Any("panic", r))
			result = models.NewErrorResult(datasource.GenericErrorMessage)
		}
		metrics.ObserveQuery(engine, string(result.Status), time.Since(start))
	}()

	handle, err := s.registry.Get(ctx, id)
	if err != nil {
		logger.Warn("Failed to obtain connection handle",
			zap.String("error", logging.SanitizeError(err)))
		return models.NewErrorResult(datasource.ErrorMessage(err))
	}
	identity := handle.Identity()
	engine = identity.Engine.String()

	raw, err := handle.Run(ctx, sqlText)
	if err != nil {
		logger.Info("Query execution failed",
			zap.String("engine", engine),
			zap.String("sql", logging.SanitizeQuery(sqlText)),
			zap.String("error", logging.SanitizeError(err)))
		return models.NewErrorResult(datasource.ErrorMessage(err))
	}

	result, err = s.normalizer.Normalize(identity, raw)
	if err != nil {
		logger.Error("Failed to normalize query result",
			zap.String("engine", engine),
			zap.Error(err))
		return models.NewErrorResult(datasource.ErrorMessage(err))
	}

	logger.Debug("Query executed",
		zap.String("engine", engine),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)))
	return result
}

func (s *connectionService) AddConnection(ctx context.Context, id int64, kind models.EngineKind, config map[string]any) error {
	if err := s.registry.Add(ctx, id, kind, config); err != nil {
		return fmt.Errorf("add connection %d: %w", id, err)
	}
	return nil
}

func (s *connectionService) RemoveConnection(id int64) error {
	handle := s.registry.Remove(id)
	if handle == nil || !s.closeOnRemove {
		return nil
	}
	if err := handle.Close(); err != nil {
		return fmt.Errorf("close connection %d: %w", id, err)
	}
	return nil
}

func (s *connectionService) ConnectionExists(id int64) bool {
	return s.registry.Exists(id)
}

func (s *connectionService) RefreshConnection(id int64) error {
	if err := s.RemoveConnection(id); err != nil {
		return err
	}
	s.logger.Info("Connection will reload on next use", zap.Int64("connectionID", id))
	return nil
}

func (s *connectionService) ListEngines() []datasource.EngineInfo {
	return s.factory.Engines()
}

// Ensure connectionService implements ConnectionService at compile time.
var _ ConnectionService = (*connectionService)(nil)
