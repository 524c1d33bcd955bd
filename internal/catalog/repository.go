package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/derma-scan/internal/logging"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Repository provides persistence APIs for the disease catalog.
type Repository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRepository creates a new repository instance.
func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:             db,
		logger:         logger.Named("catalog_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Disease{})
}

// Seed inserts the built-in entries that are missing. Existing rows are
// left untouched so operators can edit descriptions without a redeploy
// reverting them.
func (r *Repository) Seed(ctx context.Context) error {
	for _, disease := range Defaults() {
		entry := disease
		err := r.executeWithRetry(ctx, "catalog.seed", entry.Name, func() error {
			return r.db.WithContext(ctx).
				Where("name = ?", entry.Name).
				FirstOrCreate(&entry).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// FindByName retrieves the catalog entry for a label.
func (r *Repository) FindByName(ctx context.Context, name string) (*Disease, error) {
	var disease Disease
	err := r.executeWithRetry(ctx, "catalog.find_by_name", name, func() error {
		return r.db.WithContext(ctx).First(&disease, "name = ?", name).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &disease, nil
}

// ListNames returns every known label.
func (r *Repository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.executeWithRetry(ctx, "catalog.list_names", "", func() error {
		return r.db.WithContext(ctx).
			Model(&Disease{}).
			Order("name").
			Pluck("name", &names).Error
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// executeWithRetry runs fn, retrying transient failures with capped
// exponential backoff. Non-transient failures return immediately wrapped
// as OperationError; gorm.ErrRecordNotFound passes through unwrapped so
// callers can branch on it.
func (r *Repository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	backoff := r.initialBackoff

	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
