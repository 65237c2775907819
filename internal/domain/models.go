// Package domain provides core domain models and types for the learning engine.
package domain

import "time"

// Candle is a single observation of an ordered market series.
// Timestamps must be strictly increasing within a series.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// MarketSeries is an ordered sequence of candles with at least a close price.
type MarketSeries []Candle

// Closes returns the close prices in series order.
func (s MarketSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volumes in series order. Missing volume data is zero.
func (s MarketSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// PerformanceMetrics summarizes how a strategy performed on a market.
type PerformanceMetrics struct {
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
}

// StrategyParams are the tunable parameters of a trading strategy.
type StrategyParams struct {
	RiskLevel    float64 `json:"risk_level"`
	PositionSize float64 `json:"position_size"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
}

// Task bundles a market series with the performance and parameters of the
// strategy that traded it. Tasks are immutable once captured; all learners
// consume them read-only.
type Task struct {
	ID             string             `json:"id"`
	Market         MarketSeries       `json:"market_series"`
	Performance    PerformanceMetrics `json:"performance"`
	StrategyParams StrategyParams     `json:"strategy_params"`
}

// ModelID uniquely identifies a model in the pool and on disk.
type ModelID string

// LearningMethod identifies which strategy produced a model.
type LearningMethod string

const (
	MethodMetaLearning     LearningMethod = "meta_learning"
	MethodTransferLearning LearningMethod = "transfer_learning"
	MethodAutoML           LearningMethod = "automl"
	MethodNAS              LearningMethod = "nas"
)

// LearningResult is the outcome of a learning operation. It is returned to
// the caller and never stored server-side.
type LearningResult struct {
	Success           bool               `json:"success"`
	Status            Status             `json:"status"`
	ModelPerformance  map[string]float64 `json:"model_performance,omitempty"`
	LearningTime      float64            `json:"learning_time_seconds"`
	ModelID           ModelID            `json:"model_id,omitempty"`
	ModelPath         string             `json:"model_path,omitempty"`
	ModelType         string             `json:"model_type,omitempty"`
	Hyperparameters   map[string]any     `json:"hyperparameters,omitempty"`
	CVScores          []float64          `json:"cv_scores,omitempty"`
	FeatureImportance []float64          `json:"feature_importance,omitempty"`
	LearningMethod    LearningMethod     `json:"learning_method,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
}
