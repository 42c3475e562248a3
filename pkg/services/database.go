package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/crypto"
	"github.com/advanced-rising/vanillameta/pkg/logging"
	"github.com/advanced-rising/vanillameta/pkg/models"
	"github.com/advanced-rising/vanillameta/pkg/repositories"
)

// DatabaseService manages persisted connection configs and keeps the
// connection registry in step with them.
type DatabaseService interface {
	// Create stores a new connection config.
	Create(ctx context.Context, name string, kind models.EngineKind, config map[string]any) (*models.StoredConnection, error)

	// Get returns a stored connection and its config with secrets redacted.
	Get(ctx context.Context, id int64) (*models.StoredConnection, map[string]any, error)

	// List returns every stored connection without configs.
	List(ctx context.Context) ([]*models.StoredConnection, error)

	// UpdateConfig replaces a connection's config and drops its live handle.
	UpdateConfig(ctx context.Context, id int64, config map[string]any) error

	// Delete removes a connection and its live handle.
	Delete(ctx context.Context, id int64) error
}

type databaseService struct {
	repo        repositories.DatabaseRepository
	codec       *crypto.ConfigCodec
	connections ConnectionService
	logger      *zap.Logger
}

// NewDatabaseService creates a database service.
func NewDatabaseService(
	repo repositories.DatabaseRepository,
	codec *crypto.ConfigCodec,
	connections ConnectionService,
	logger *zap.Logger,
) DatabaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &databaseService{
		repo:        repo,
		codec:       codec,
		connections: connections,
		logger:      logger.Named("database"),
	}
}

func (s *databaseService) Create(ctx context.Context, name string, kind models.EngineKind, config map[string]any) (*models.StoredConnection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: database name is required", apperrors.ErrInvalidConfig)
	}
	if !kind.IsKnown() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedEngine, kind)
	}

	serialized, err := s.codec.Encode(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	conn := &models.StoredConnection{Name: name, Engine: kind, SerializedConfig: serialized}
	if err := s.repo.Create(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Created database",
		zap.Int64("id", conn.ID),
		zap.String("name", name),
		zap.String("engine", kind.String()),
		zap.Bool("sealed", s.codec.Encrypted()),
	)
	return conn, nil
}

func (s *databaseService) Get(ctx context.Context, id int64) (*models.StoredConnection, map[string]any, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	config, err := s.codec.Decode(conn.SerializedConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return conn, logging.SanitizeConfig(config), nil
}

func (s *databaseService) List(ctx context.Context) ([]*models.StoredConnection, error) {
	return s.repo.List(ctx)
}

func (s *databaseService) UpdateConfig(ctx context.Context, id int64, config map[string]any) error {
	serialized, err := s.codec.Encode(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := s.repo.UpdateConfig(ctx, id, serialized); err != nil {
		return err
	}

	if err := s.connections.RefreshConnection(id); err != nil {
		s.logger.Warn("Failed to release previous handle",
			zap.Int64("id", id),
			zap.String("error", logging.SanitizeError(err)))
	}
	s.logger.Info("Updated database config", zap.Int64("id", id))
	return nil
}

func (s *databaseService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.connections.RemoveConnection(id); err != nil {
		s.logger.Warn("Failed to release handle for deleted database",
			zap.Int64("id", id),
			zap.String("error", logging.SanitizeError(err)))
	}
	s.logger.Info("Deleted database", zap.Int64("id", id))
	return nil
}

// Ensure databaseService implements DatabaseService at compile time.
var _ DatabaseService = (*databaseService)(nil)
