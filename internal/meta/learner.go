// Package meta implements meta-learning: learning cross-task similarity and a
// performance predictor from prior tasks, then recommending strategy
// parameters for new, unseen tasks via similarity retrieval.
package meta

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
	"github.com/aristath/sentinel-brain/internal/features"
)

// DefaultTasksThreshold is the minimum batch size for learning.
const DefaultTasksThreshold = 5

// topSimilarCount is how many similar tasks an adaptation reports.
const topSimilarCount = 3

// Knowledge is everything the learner knows about prior tasks. It is rebuilt
// wholesale on every successful LearnFromTasks call, never mutated in place.
type Knowledge struct {
	TaskIDs          []string
	TaskFeatures     [][]float64
	Similarity       [][]float64 // NxN, diagonal left at zero (self-similarity not stored)
	TaskPerformances []domain.PerformanceMetrics
	StrategyParams   []domain.StrategyParams
	LearnedAt        time.Time
}

// LearnOutcome reports the result of a LearnFromTasks call.
type LearnOutcome struct {
	Status       domain.Status
	TasksLearned int
	LearnedAt    time.Time
}

// SimilarTask references a stored task and its similarity to a new one.
type SimilarTask struct {
	TaskID     string  `json:"task_id"`
	Similarity float64 `json:"similarity"`
}

// Adaptation is the recommendation produced for a new task.
type Adaptation struct {
	Status               domain.Status         `json:"status"`
	SimilarTasks         []SimilarTask         `json:"similar_tasks,omitempty"`
	PredictedPerformance *float64              `json:"predicted_performance"`
	RecommendedParams    domain.StrategyParams `json:"recommended_strategy_params"`
	Confidence           float64               `json:"confidence"`
}

// Learner learns across prior tasks and adapts to new ones.
type Learner struct {
	threshold int
	extractor *features.Extractor
	log       zerolog.Logger

	mu        sync.RWMutex
	knowledge *Knowledge
	predictor estimator.Estimator // feature vector -> Sharpe ratio
}

// NewLearner creates a meta learner. threshold < 1 uses the default.
func NewLearner(threshold int, extractor *features.Extractor, log zerolog.Logger) *Learner {
	if threshold < 1 {
		threshold = DefaultTasksThreshold
	}
	return &Learner{
		threshold: threshold,
		extractor: extractor,
		log:       log.With().Str("component", "meta_learner").Logger(),
	}
}

// LearnFromTasks rebuilds the meta knowledge from a batch of prior tasks.
// Batches below the threshold return insufficient_data and leave any
// pre-existing knowledge unchanged.
func (l *Learner) LearnFromTasks(tasks []domain.Task) LearnOutcome {
	if len(tasks) < l.threshold {
		l.log.Warn().
			Int("tasks", len(tasks)).
			Int("threshold", l.threshold).
			Msg("Not enough tasks for meta learning")
		return LearnOutcome{Status: domain.StatusInsufficientData}
	}

	n := len(tasks)
	kn := &Knowledge{
		TaskIDs:          make([]string, n),
		TaskFeatures:     make([][]float64, n),
		Similarity:       make([][]float64, n),
		TaskPerformances: make([]domain.PerformanceMetrics, n),
		StrategyParams:   make([]domain.StrategyParams, n),
		LearnedAt:        time.Now(),
	}

	for i, task := range tasks {
		kn.TaskIDs[i] = task.ID
		kn.TaskFeatures[i] = l.extractor.TaskFeatures(task)
		kn.TaskPerformances[i] = task.Performance
		kn.StrategyParams[i] = task.StrategyParams
		kn.Similarity[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := clampUnit(features.CosineSimilarity(kn.TaskFeatures[i], kn.TaskFeatures[j]))
			kn.Similarity[i][j] = sim
			kn.Similarity[j][i] = sim
		}
	}

	// Fit the performance predictor (feature vector -> Sharpe ratio).
	labels := make([]float64, n)
	for i := range tasks {
		labels[i] = tasks[i].Performance.SharpeRatio
	}
	predictor := estimator.NewPipeline(estimator.NewRidge(1.0))
	if err := predictor.Fit(kn.TaskFeatures, labels); err != nil {
		// Knowledge is still useful without the predictor; predictions will
		// simply come back as null.
		l.log.Warn().Err(err).Msg("Performance predictor fit failed")
		predictor = nil
	}

	l.mu.Lock()
	l.knowledge = kn
	if predictor != nil {
		l.predictor = predictor
	} else {
		l.predictor = nil
	}
	l.mu.Unlock()

	l.log.Info().Int("tasks", n).Msg("Meta knowledge rebuilt")
	return LearnOutcome{Status: domain.StatusSuccess, TasksLearned: n, LearnedAt: kn.LearnedAt}
}

// AdaptToNewTask ranks stored tasks by similarity to the new task and
// recommends the most similar task's strategy parameters.
func (l *Learner) AdaptToNewTask(task domain.Task) Adaptation {
	l.mu.RLock()
	kn := l.knowledge
	predictor := l.predictor
	l.mu.RUnlock()

	if kn == nil {
		return Adaptation{Status: domain.StatusNoPriorKnowledge}
	}

	vec := l.extractor.TaskFeatures(task)

	ranked := make([]SimilarTask, len(kn.TaskFeatures))
	for i, stored := range kn.TaskFeatures {
		ranked[i] = SimilarTask{
			TaskID:     kn.TaskIDs[i],
			Similarity: clampUnit(features.CosineSimilarity(vec, stored)),
		}
	}
	bestIdx := 0
	for i := range ranked {
		if ranked[i].Similarity > ranked[bestIdx].Similarity {
			bestIdx = i
		}
	}

	top := topK(ranked, topSimilarCount)

	// Best-effort performance prediction; failures are reported as null.
	var predicted *float64
	if predictor != nil {
		if preds, err := predictor.Predict([][]float64{vec}); err == nil && len(preds) == 1 {
			predicted = &preds[0]
		} else if err != nil {
			l.log.Debug().Err(err).Msg("Performance prediction failed")
		}
	}

	return Adaptation{
		Status:               domain.StatusSuccess,
		SimilarTasks:         top,
		PredictedPerformance: predicted,
		RecommendedParams:    kn.StrategyParams[bestIdx],
		Confidence:           top[0].Similarity,
	}
}

// Knowledge returns the current knowledge snapshot (nil before learning).
func (l *Learner) Knowledge() *Knowledge {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.knowledge
}

// Summary describes the learner state for status exports.
func (l *Learner) Summary() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.knowledge == nil {
		return map[string]any{"has_knowledge": false, "tasks_learned": 0}
	}
	return map[string]any{
		"has_knowledge": true,
		"tasks_learned": len(l.knowledge.TaskIDs),
		"learned_at":    l.knowledge.LearnedAt,
		"has_predictor": l.predictor != nil,
	}
}

func topK(ranked []SimilarTask, k int) []SimilarTask {
	sorted := append([]SimilarTask(nil), ranked...)
	// Insertion sort by similarity descending; N is small.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Similarity > sorted[j-1].Similarity; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
