// Package learning provides the self-learning orchestration engine: it runs
// the enabled learning strategies against a market, keeps the best model in
// a bounded pool, persists winners and adapts models as conditions drift.
package learning

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/automl"
	"github.com/aristath/sentinel-brain/internal/config"
	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
	"github.com/aristath/sentinel-brain/internal/history"
	"github.com/aristath/sentinel-brain/internal/meta"
	"github.com/aristath/sentinel-brain/internal/nas"
	"github.com/aristath/sentinel-brain/internal/transfer"
	"github.com/aristath/sentinel-brain/internal/work"
)

// LearnRequest carries everything a learn-from-market run can use. Market is
// required; the rest feeds individual strategies and is optional.
type LearnRequest struct {
	MarketName string
	Market     domain.MarketSeries

	// PriorTasks feed the meta-learning strategy.
	PriorTasks []domain.Task

	// SourceDomain and SourceModel feed the transfer-learning strategy.
	SourceDomain *transfer.Domain
	SourceModel  estimator.Estimator
}

// Orchestrator coordinates the learning strategies and owns the model pool.
type Orchestrator struct {
	cfg       *config.LearningConfig
	extractor *features.Extractor
	metaL     *meta.Learner
	transferL *transfer.Learner
	automlS   *automl.Searcher
	nasS      *nas.Search
	pool      *ModelPool
	store     *history.Store // nil = in-memory bookkeeping only
	log       zerolog.Logger

	// writeMu serializes pool mutation and artifact directory writes.
	writeMu sync.Mutex

	// In-process session counters; the store adds durability when present.
	statsMu       sync.Mutex
	totalSessions int
	successful    int
	totalTime     float64
	methodCounts  map[domain.LearningMethod]int
}

// NewOrchestrator wires the engine. store may be nil to run without durable
// history.
func NewOrchestrator(cfg *config.LearningConfig, store *history.Store, log zerolog.Logger) *Orchestrator {
	extractor := features.NewExtractor()
	pool := work.NewPool(cfg.EvalWorkers, cfg.CandidateTimeout, log)

	return &Orchestrator{
		cfg:          cfg,
		extractor:    extractor,
		metaL:        meta.NewLearner(cfg.MetaLearningTasksThreshold, extractor, log),
		transferL:    transfer.NewLearner(cfg.TransferSimilarityThreshold, extractor, log),
		automlS:      automl.NewSearcher(pool, log),
		nasS:         nas.NewSearch(pool, log),
		pool:         NewModelPool(),
		store:        store,
		log:          log.With().Str("component", "learning_orchestrator").Logger(),
		methodCounts: make(map[domain.LearningMethod]int),
	}
}

// Meta exposes the meta learner for direct task-level operations.
func (o *Orchestrator) Meta() *meta.Learner { return o.metaL }

// Transfer exposes the transfer learner.
func (o *Orchestrator) Transfer() *transfer.Learner { return o.transferL }

// AutoML exposes the model searcher.
func (o *Orchestrator) AutoML() *automl.Searcher { return o.automlS }

// NAS exposes the architecture search.
func (o *Orchestrator) NAS() *nas.Search { return o.nasS }

// Pool exposes the model pool.
func (o *Orchestrator) Pool() *ModelPool { return o.pool }

// strategyCandidate is one strategy's contribution to the comparison.
type strategyCandidate struct {
	method  domain.LearningMethod
	model   estimator.Estimator
	metrics estimator.Metrics
	extra   map[string]any
}

// LearnFromMarket runs the enabled strategies against the request's market,
// compares their out-of-sample R² uniformly, persists the winner and
// registers it in the pool. Individual strategy failures are absorbed;
// cancellation between strategies returns the best candidate found so far.
func (o *Orchestrator) LearnFromMarket(ctx context.Context, req LearnRequest) (result domain.LearningResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("Learning run panicked")
			result = domain.LearningResult{
				Success:      false,
				Status:       domain.StatusFailed,
				LearningTime: time.Since(start).Seconds(),
				ErrorMessage: fmt.Sprintf("unexpected failure: %v", r),
			}
			o.recordSession(result)
		}
	}()

	if len(req.Market) == 0 {
		result = domain.LearningResult{
			Success:      false,
			Status:       domain.StatusInsufficientData,
			LearningTime: time.Since(start).Seconds(),
			ErrorMessage: "no market data provided",
		}
		o.recordSession(result)
		return result
	}

	var best *strategyCandidate
	cancelled := false

	for _, run := range o.enabledStrategies(req) {
		if err := ctx.Err(); err != nil {
			o.log.Warn().Err(err).Msg("Learning cancelled, keeping best candidate so far")
			cancelled = true
			break
		}

		cand, err := run(ctx)
		if err != nil {
			// Strategy failures never abort the other strategies.
			o.log.Warn().Err(err).Msg("Strategy contributed no candidate")
			continue
		}
		if cand == nil {
			continue
		}
		if best == nil || cand.metrics.R2 > best.metrics.R2 {
			best = cand
		}
	}

	if best == nil {
		msg := "no strategy produced a usable model"
		if cancelled {
			msg = "cancelled before any strategy completed"
		}
		result = domain.LearningResult{
			Success:      false,
			Status:       domain.StatusFailed,
			LearningTime: time.Since(start).Seconds(),
			ErrorMessage: msg,
		}
		o.recordSession(result)
		return result
	}

	modelID := domain.ModelID(uuid.New().String())
	path, persistErr := o.persistAndRegister(modelID, best, "")

	result = domain.LearningResult{
		Success:          true,
		Status:           domain.StatusSuccess,
		ModelPerformance: best.metrics.Map(),
		LearningTime:     time.Since(start).Seconds(),
		ModelID:          modelID,
		ModelPath:        path,
		ModelType:        automl.BaseKind(best.model),
		LearningMethod:   best.method,
	}
	if cv, ok := best.extra["cv_scores"].([]float64); ok {
		result.CVScores = cv
	}
	if hp, ok := best.extra["hyperparameters"].(map[string]any); ok {
		result.Hyperparameters = hp
	}
	if provider, ok := best.model.(estimator.ImportanceProvider); ok {
		if imp, fitted := provider.Importances(); fitted {
			result.FeatureImportance = imp
		}
	}
	if persistErr != nil {
		// Persistence problems are surfaced without corrupting the pool.
		result.Status = domain.StatusPersistenceFailed
		result.ErrorMessage = persistErr.Error()
		result.ModelPath = ""
	}

	o.recordSession(result)
	o.log.Info().
		Str("model_id", string(modelID)).
		Str("method", string(best.method)).
		Float64("r2", best.metrics.R2).
		Float64("seconds", result.LearningTime).
		Msg("Learning run complete")
	return result
}

// strategyRun produces at most one candidate. A nil candidate with nil error
// means the strategy had nothing to contribute (e.g. missing inputs).
type strategyRun func(ctx context.Context) (*strategyCandidate, error)

func (o *Orchestrator) enabledStrategies(req LearnRequest) []strategyRun {
	var runs []strategyRun

	if o.cfg.MetaLearningEnabled {
		runs = append(runs, func(ctx context.Context) (*strategyCandidate, error) {
			return o.runMetaStrategy(req)
		})
	}
	if o.cfg.TransferLearningEnabled {
		runs = append(runs, func(ctx context.Context) (*strategyCandidate, error) {
			return o.runTransferStrategy(req)
		})
	}
	if o.cfg.AutoMLEnabled {
		runs = append(runs, func(ctx context.Context) (*strategyCandidate, error) {
			return o.runAutoMLStrategy(ctx, req)
		})
	}
	if o.cfg.NASEnabled {
		runs = append(runs, func(ctx context.Context) (*strategyCandidate, error) {
			return o.runNASStrategy(ctx, req)
		})
	}
	return runs
}

// runMetaStrategy learns across the prior tasks and, when knowledge exists,
// contributes a target-market model guided by the cross-task performance
// predictor.
func (o *Orchestrator) runMetaStrategy(req LearnRequest) (*strategyCandidate, error) {
	if len(req.PriorTasks) > 0 {
		outcome := o.metaL.LearnFromTasks(req.PriorTasks)
		if !outcome.Status.OK() && o.metaL.Knowledge() == nil {
			return nil, fmt.Errorf("meta learning: %s", outcome.Status)
		}
	}
	if o.metaL.Knowledge() == nil {
		return nil, nil // nothing learned yet and no tasks supplied
	}

	ds, err := features.BuildDataset(req.Market, automl.MinRows)
	if err != nil {
		return nil, fmt.Errorf("meta learning: %w", err)
	}

	model := estimator.NewPipeline(estimator.NewRidge(1.0))
	train, holdout := ds.SplitHoldout(0.2)
	if err := model.Fit(train.X, train.Y); err != nil {
		return nil, fmt.Errorf("meta learning: %w", err)
	}
	preds, err := model.Predict(holdout.X)
	if err != nil {
		return nil, fmt.Errorf("meta learning: %w", err)
	}
	metrics := estimator.Evaluate(preds, holdout.Y)

	if err := model.Fit(ds.X, ds.Y); err != nil {
		return nil, fmt.Errorf("meta learning: %w", err)
	}

	extra := map[string]any{}
	adaptation := o.metaL.AdaptToNewTask(domain.Task{ID: req.MarketName, Market: req.Market})
	if adaptation.Status.OK() {
		extra["recommended_strategy_params"] = adaptation.RecommendedParams
		extra["confidence"] = adaptation.Confidence
	}

	return &strategyCandidate{
		method:  domain.MethodMetaLearning,
		model:   model,
		metrics: metrics,
		extra:   extra,
	}, nil
}

func (o *Orchestrator) runTransferStrategy(req LearnRequest) (*strategyCandidate, error) {
	if req.SourceDomain == nil || req.SourceModel == nil {
		return nil, nil // no source to transfer from
	}

	target := transfer.Domain{Name: req.MarketName, Series: req.Market}
	res := o.transferL.TransferKnowledge(*req.SourceDomain, target, req.SourceModel)
	if !res.Status.OK() {
		return nil, fmt.Errorf("transfer learning: %s (%s)", res.Status, res.ErrorMessage)
	}

	return &strategyCandidate{
		method:  domain.MethodTransferLearning,
		model:   res.Model,
		metrics: res.Metrics,
		extra: map[string]any{
			"domain_similarity": res.DomainSimilarity,
			"transfer_method":   res.TransferMethod,
			"low_similarity":    res.LowSimilarity,
		},
	}, nil
}

func (o *Orchestrator) runAutoMLStrategy(ctx context.Context, req LearnRequest) (*strategyCandidate, error) {
	res := o.automlS.SearchModels(ctx, req.Market)
	if !res.Status.OK() {
		return nil, fmt.Errorf("automl: %s (%s)", res.Status, res.ErrorMessage)
	}
	return &strategyCandidate{
		method:  domain.MethodAutoML,
		model:   res.BestModel,
		metrics: res.Metrics,
		extra: map[string]any{
			"cv_scores":       res.BestCVScores,
			"hyperparameters": map[string]any{"family": res.BestName},
		},
	}, nil
}

func (o *Orchestrator) runNASStrategy(ctx context.Context, req LearnRequest) (*strategyCandidate, error) {
	res := o.nasS.SearchArchitecture(ctx, req.Market, nas.DefaultConstraints())
	if !res.Status.OK() {
		return nil, fmt.Errorf("nas: %s (%s)", res.Status, res.ErrorMessage)
	}
	return &strategyCandidate{
		method:  domain.MethodNAS,
		model:   res.BestModel,
		metrics: res.Metrics,
		extra: map[string]any{
			"hyperparameters": map[string]any{
				"layer_sizes":          res.Best.LayerSizes,
				"activation":           res.Best.Activation,
				"regularization_alpha": res.Best.Alpha,
			},
		},
	}, nil
}

// persistAndRegister writes the winning model artifact and registers the
// pool entry under the single writer lock. Persistence failures leave the
// in-memory pool intact and are returned for surfacing.
func (o *Orchestrator) persistAndRegister(id domain.ModelID, cand *strategyCandidate, parent domain.ModelID) (string, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	path := o.ArtifactPath(id, cand.method)
	persistErr := estimator.Save(cand.model, path)
	if persistErr != nil {
		o.log.Error().Err(persistErr).Str("path", path).Msg("Model persistence failed")
		path = ""
	}

	rec := ModelRecord{
		ModelID:       id,
		Estimator:     cand.model,
		Performance:   cand.metrics,
		Method:        cand.method,
		CreatedAt:     time.Now(),
		ParentModelID: parent,
		Path:          path,
	}
	o.pool.Add(rec)

	if o.store != nil {
		if err := o.store.RegisterModel(history.ModelRow{
			ModelID:       id,
			Method:        cand.method,
			Path:          path,
			Performance:   cand.metrics.R2,
			ParentModelID: parent,
			CreatedAt:     rec.CreatedAt,
		}); err != nil {
			o.log.Warn().Err(err).Msg("Model registry write failed")
		}
	}

	// Enforce the pool bound.
	o.evictLocked(o.cfg.MaxPoolSize)

	return path, persistErr
}

// ArtifactPath returns the deterministic artifact location for a model.
func (o *Orchestrator) ArtifactPath(id domain.ModelID, method domain.LearningMethod) string {
	return filepath.Join(o.cfg.ModelStorageRoot, fmt.Sprintf("%s_%s%s", id, method, estimator.ArtifactExt))
}

// LoadModel restores a persisted model artifact by ID and method. The loaded
// estimator predicts identically to the in-memory original.
func (o *Orchestrator) LoadModel(id domain.ModelID, method domain.LearningMethod) (estimator.Estimator, error) {
	return estimator.Load(o.ArtifactPath(id, method))
}

func (o *Orchestrator) recordSession(res domain.LearningResult) {
	o.statsMu.Lock()
	o.totalSessions++
	if res.Success {
		o.successful++
		o.methodCounts[res.LearningMethod]++
	}
	o.totalTime += res.LearningTime
	o.statsMu.Unlock()

	if o.store == nil {
		return
	}
	r2 := 0.0
	if res.ModelPerformance != nil {
		r2 = res.ModelPerformance["r2"]
	}
	err := o.store.RecordSession(history.SessionRecord{
		ID:           uuid.New().String(),
		Method:       res.LearningMethod,
		Success:      res.Success,
		R2:           r2,
		LearningTime: res.LearningTime,
		ErrorMessage: res.ErrorMessage,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		o.log.Warn().Err(err).Msg("Session history write failed")
	}
}
