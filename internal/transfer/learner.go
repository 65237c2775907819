// Package transfer implements transfer learning: measuring how alike two
// market domains are and producing a target-adapted estimator from a source
// model.
package transfer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
)

// DefaultSimilarityThreshold is the domain similarity below which a transfer
// is flagged (but still performed).
const DefaultSimilarityThreshold = 0.7

// minTargetRows is the minimum number of valid target rows after feature
// construction and NaN dropping.
const minTargetRows = 10

// holdoutFrac is the time-ordered fraction of target rows held out for
// evaluating the transferred model.
const holdoutFrac = 0.2

// Transfer method names recorded in transfer history.
const (
	MethodFeatureImportance = "feature_importance"
	MethodWeightTransfer    = "weight_transfer"
)

// Domain is a named market data domain.
type Domain struct {
	Name   string
	Series domain.MarketSeries
}

// Record is an immutable entry of the transfer history log.
type Record struct {
	SourceDomain     string    `json:"source_domain"`
	TargetDomain     string    `json:"target_domain"`
	DomainSimilarity float64   `json:"domain_similarity"`
	TransferMethod   string    `json:"transfer_method"`
	Timestamp        time.Time `json:"timestamp"`
	TargetDataSize   int       `json:"target_data_size"`
}

// Result is the outcome of a transfer or fine-tune operation.
type Result struct {
	Status           domain.Status
	Model            estimator.Estimator
	Metrics          estimator.Metrics
	DomainSimilarity float64
	TransferMethod   string
	LowSimilarity    bool
	TargetDataSize   int
	ErrorMessage     string
}

// Learner performs cross-domain model transfer.
type Learner struct {
	similarityThreshold float64
	extractor           *features.Extractor
	log                 zerolog.Logger

	mu      sync.Mutex
	history []Record
}

// NewLearner creates a transfer learner. threshold <= 0 uses the default.
func NewLearner(similarityThreshold float64, extractor *features.Extractor, log zerolog.Logger) *Learner {
	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityThreshold
	}
	return &Learner{
		similarityThreshold: similarityThreshold,
		extractor:           extractor,
		log:                 log.With().Str("component", "transfer_learner").Logger(),
	}
}

// TransferKnowledge adapts sourceModel to the target domain. Low domain
// similarity is flagged but never fatal. The transfer method depends on the
// source estimator's capabilities: feature-importance blending when it
// exposes importances, weight transfer (a direct retrain on target data)
// otherwise.
func (l *Learner) TransferKnowledge(source, target Domain, sourceModel estimator.Estimator) Result {
	similarity := features.CosineSimilarity(
		l.extractor.DomainFeatures(source.Series),
		l.extractor.DomainFeatures(target.Series),
	)
	if similarity < 0 {
		similarity = 0
	}

	lowSimilarity := similarity < l.similarityThreshold
	if lowSimilarity {
		l.log.Warn().
			Str("source", source.Name).
			Str("target", target.Name).
			Float64("similarity", similarity).
			Float64("threshold", l.similarityThreshold).
			Msg("Low domain similarity, transferring anyway")
	}

	ds, err := features.BuildDataset(target.Series, minTargetRows)
	if err != nil {
		return Result{
			Status:           domain.StatusInsufficientData,
			DomainSimilarity: similarity,
			LowSimilarity:    lowSimilarity,
			ErrorMessage:     err.Error(),
		}
	}

	var (
		model  estimator.Estimator
		method string
	)
	if provider, ok := sourceModel.(estimator.ImportanceProvider); ok {
		if sourceImportances, fitted := provider.Importances(); fitted {
			model, err = l.importanceTransfer(sourceModel, sourceImportances, ds)
			method = MethodFeatureImportance
		} else {
			model, err = l.weightTransfer(sourceModel, ds)
			method = MethodWeightTransfer
		}
	} else {
		model, err = l.weightTransfer(sourceModel, ds)
		method = MethodWeightTransfer
	}
	if err != nil {
		return Result{
			Status:           domain.StatusFailed,
			DomainSimilarity: similarity,
			TransferMethod:   method,
			LowSimilarity:    lowSimilarity,
			ErrorMessage:     err.Error(),
		}
	}

	metrics, err := evaluateHoldout(model, ds)
	if err != nil {
		return Result{
			Status:           domain.StatusFailed,
			DomainSimilarity: similarity,
			TransferMethod:   method,
			LowSimilarity:    lowSimilarity,
			ErrorMessage:     err.Error(),
		}
	}

	l.appendRecord(Record{
		SourceDomain:     source.Name,
		TargetDomain:     target.Name,
		DomainSimilarity: similarity,
		TransferMethod:   method,
		Timestamp:        time.Now(),
		TargetDataSize:   ds.Len(),
	})

	l.log.Info().
		Str("source", source.Name).
		Str("target", target.Name).
		Str("method", method).
		Float64("similarity", similarity).
		Float64("r2", metrics.R2).
		Msg("Transfer complete")

	return Result{
		Status:           domain.StatusSuccess,
		Model:            model,
		Metrics:          metrics,
		DomainSimilarity: similarity,
		TransferMethod:   method,
		LowSimilarity:    lowSimilarity,
		TargetDataSize:   ds.Len(),
	}
}

// FineTune retrains the base model on target data, falling back to a ridge
// pipeline when the base cannot be retrained.
func (l *Learner) FineTune(base estimator.Estimator, target domain.MarketSeries) Result {
	ds, err := features.BuildDataset(target, minTargetRows)
	if err != nil {
		return Result{Status: domain.StatusInsufficientData, ErrorMessage: err.Error()}
	}

	model := base.Clone()
	if fitErr := model.Fit(ds.X, ds.Y); fitErr != nil {
		l.log.Warn().Err(fitErr).Str("kind", base.Kind()).Msg("Base model retrain failed, using fallback estimator")
		model = estimator.NewPipeline(estimator.NewRidge(1.0))
		if fitErr := model.Fit(ds.X, ds.Y); fitErr != nil {
			return Result{Status: domain.StatusFailed, ErrorMessage: fitErr.Error()}
		}
	}

	metrics, err := evaluateHoldout(model, ds)
	if err != nil {
		return Result{Status: domain.StatusFailed, ErrorMessage: err.Error()}
	}

	return Result{
		Status:         domain.StatusSuccess,
		Model:          model,
		Metrics:        metrics,
		TargetDataSize: ds.Len(),
	}
}

func (l *Learner) appendRecord(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, r)
}

// History returns a copy of the transfer history log.
func (l *Learner) History() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.history...)
}

// Summary describes the learner state for status exports.
func (l *Learner) Summary() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]any{
		"transfers_performed":  len(l.history),
		"similarity_threshold": l.similarityThreshold,
	}
}

// importanceTransfer blends 70% source-derived importance with 30%
// target-refit importance and fits a fresh copy of the source family on
// importance-weighted target features.
func (l *Learner) importanceTransfer(sourceModel estimator.Estimator, sourceImportances []float64, ds *features.Dataset) (estimator.Estimator, error) {
	// Target-refit importances from a quick ridge fit.
	probe := estimator.NewPipeline(estimator.NewRidge(1.0))
	targetImportances := make([]float64, len(ds.X[0]))
	if err := probe.Fit(ds.X, ds.Y); err == nil {
		if imp, ok := probe.Importances(); ok {
			targetImportances = imp
		}
	}

	blended := make([]float64, len(targetImportances))
	for i := range blended {
		src := 0.0
		if i < len(sourceImportances) {
			src = sourceImportances[i]
		}
		blended[i] = 0.7*src + 0.3*targetImportances[i]
	}

	model := &estimator.WeightedFeatures{
		Weights: blended,
		Inner:   sourceModel.Clone(),
	}
	if err := model.Fit(ds.X, ds.Y); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Learner) weightTransfer(sourceModel estimator.Estimator, ds *features.Dataset) (estimator.Estimator, error) {
	model := sourceModel.Clone()
	if err := model.Fit(ds.X, ds.Y); err != nil {
		return nil, err
	}
	return model, nil
}

func evaluateHoldout(model estimator.Estimator, ds *features.Dataset) (estimator.Metrics, error) {
	_, holdout := ds.SplitHoldout(holdoutFrac)
	preds, err := model.Predict(holdout.X)
	if err != nil {
		return estimator.Metrics{}, err
	}
	return estimator.Evaluate(preds, holdout.Y), nil
}
