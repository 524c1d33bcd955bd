// Package usecase orchestrates the gateway prediction flow: dedupe by
// content hash, classify through the model runner, merge catalog advice.
package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/catalog"
	"github.com/example/derma-scan/internal/inference"
	"github.com/example/derma-scan/internal/logging"
)

// Response is the gateway's prediction payload. Confidence is a percentage
// rounded to two decimals.
type Response struct {
	Prediction  string   `json:"prediction"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
	Precautions []string `json:"precautions"`
}

// Catalog defines the knowledge-base lookups needed by the use case.
type Catalog interface {
	FindByName(ctx context.Context, name string) (*catalog.Disease, error)
	ListNames(ctx context.Context) ([]string, error)
}

// PredictionUseCase encapsulates business logic for the prediction flow.
type PredictionUseCase struct {
	catalog    Catalog
	cache      *PredictionCache
	classifier inference.Classifier
	logger     *zap.Logger
}

// NewPredictionUseCase constructs a new use case instance.
func NewPredictionUseCase(cat Catalog, cache Cache, classifier inference.Classifier, logger *zap.Logger) *PredictionUseCase {
	return &PredictionUseCase{
		catalog:    cat,
		cache:      NewPredictionCache(cache, 5*time.Minute),
		classifier: classifier,
		logger:     logger.Named("prediction_usecase"),
	}
}

// PredictImage classifies an uploaded image. Identical uploads within the
// cache TTL are answered from Redis without hitting the model runner; the
// cache is best effort and never fails a request on its own.
func (uc *PredictionUseCase) PredictImage(ctx context.Context, imageBytes []byte) (string, *Response, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.predict_image", requestID)

	cacheKey := uc.cache.Key(imageBytes)
	if cached, err := uc.cache.Lookup(ctx, cacheKey); err != nil {
		opLogger.Warn("failed to read prediction cache", zap.Error(err))
	} else if cached != nil {
		opLogger.Info("prediction served from cache", zap.String("prediction", cached.Prediction))
		return requestID, cached, nil
	}

	result, err := uc.classifier.Classify(ctx, requestID, imageBytes)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.classify_image", requestID, err)
		opLogger.Error("classification failed", zap.Error(wrapped))
		return "", nil, wrapped
	}

	info := uc.lookupDisease(ctx, opLogger, result.Label)
	resp := &Response{
		Prediction:  result.Label,
		Confidence:  roundPercent(result.Confidence),
		Description: info.Description,
		Precautions: info.Precautions,
	}

	if err := uc.cache.Store(ctx, cacheKey, resp); err != nil {
		opLogger.Warn("failed to cache prediction", zap.Error(err))
	}

	opLogger.Info("prediction complete",
		zap.String("prediction", resp.Prediction),
		zap.Float64("confidence", resp.Confidence))
	return requestID, resp, nil
}

// RunnerReachable reports whether the model runner currently answers at its
// endpoint. It backs the gateway's health report and never runs the model.
func (uc *PredictionUseCase) RunnerReachable(ctx context.Context) bool {
	if err := uc.classifier.Ping(ctx); err != nil {
		uc.logger.Warn("model runner unreachable", zap.Error(err))
		return false
	}
	return true
}

// Diseases lists the labels the catalog knows about.
func (uc *PredictionUseCase) Diseases(ctx context.Context) ([]string, error) {
	names, err := uc.catalog.ListNames(ctx)
	if err != nil {
		return nil, logging.NewOperationError("usecase.list_diseases", "", err)
	}
	return names, nil
}

// lookupDisease resolves catalog advice for a label: the label's own entry,
// then the Unknown entry, then the built-in fallback when the database is
// unreachable.
func (uc *PredictionUseCase) lookupDisease(ctx context.Context, opLogger *zap.Logger, label string) catalog.Disease {
	info, err := uc.catalog.FindByName(ctx, label)
	if err == nil {
		return *info
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		opLogger.Warn("catalog lookup failed", zap.Error(err), zap.String("label", label))
		return catalog.Fallback(label)
	}

	opLogger.Info("label missing from catalog, using unknown entry", zap.String("label", label))
	info, err = uc.catalog.FindByName(ctx, catalog.UnknownName)
	if err != nil {
		opLogger.Warn("unknown entry lookup failed", zap.Error(err))
		return catalog.Fallback(catalog.UnknownName)
	}
	return *info
}

// roundPercent converts a [0,1] confidence into a percentage with two
// decimals, matching the service's public contract.
func roundPercent(confidence float64) float64 {
	return math.Round(confidence*10000) / 100
}
