package learning

import (
	"github.com/aristath/sentinel-brain/internal/domain"
)

// Baseline parameter values used when the current set leaves one unset.
const (
	defaultRiskLevel      = 0.5
	defaultPositionSize   = 0.1
	defaultStopLoss       = 0.05
	defaultTakeProfit     = 0.1
	defaultEntryThreshold = 0.6
	defaultRiskReward     = 2.0
	defaultMaxPosition    = 0.2
)

// Performance levels that trigger a parameter adjustment.
const (
	lowSharpe       = 0.5
	highDrawdown    = 0.15
	lowWinRate      = 0.4
	lowProfitFactor = 1.2
)

// OptimizedStrategy is the outcome of a rule-based parameter review.
type OptimizedStrategy struct {
	Status  domain.Status      `json:"status"`
	Params  map[string]float64 `json:"optimized_params"`
	Reasons []string           `json:"reasons"`
}

// OptimizeStrategy adjusts strategy parameters from observed performance
// using fixed rules. It always succeeds; when performance is healthy the
// parameters come back unchanged with an empty reasons list.
func (o *Orchestrator) OptimizeStrategy(current domain.StrategyParams, perf domain.PerformanceMetrics) OptimizedStrategy {
	params := map[string]float64{
		"risk_level":        orDefault(current.RiskLevel, defaultRiskLevel),
		"position_size":     orDefault(current.PositionSize, defaultPositionSize),
		"stop_loss":         orDefault(current.StopLoss, defaultStopLoss),
		"take_profit":       orDefault(current.TakeProfit, defaultTakeProfit),
		"entry_threshold":   defaultEntryThreshold,
		"risk_reward_ratio": defaultRiskReward,
		"max_position_size": defaultMaxPosition,
	}

	var reasons []string

	if perf.SharpeRatio < lowSharpe {
		params["risk_level"] *= 0.8
		params["position_size"] *= 0.8
		reasons = append(reasons, "low sharpe ratio: reduced risk level and position size")
	}
	if perf.MaxDrawdown > highDrawdown {
		params["stop_loss"] *= 0.8
		params["max_position_size"] *= 0.7
		reasons = append(reasons, "high drawdown: tightened stop loss and capped position size")
	}
	if perf.WinRate < lowWinRate {
		params["take_profit"] *= 1.2
		params["entry_threshold"] += 0.1
		if params["entry_threshold"] > 0.9 {
			params["entry_threshold"] = 0.9
		}
		reasons = append(reasons, "low win rate: widened take profit and raised entry threshold")
	}
	if perf.ProfitFactor < lowProfitFactor {
		params["risk_reward_ratio"] *= 1.25
		reasons = append(reasons, "low profit factor: increased risk reward ratio")
	}

	o.log.Debug().
		Int("adjustments", len(reasons)).
		Float64("sharpe", perf.SharpeRatio).
		Float64("max_drawdown", perf.MaxDrawdown).
		Msg("Strategy parameters reviewed")

	return OptimizedStrategy{
		Status:  domain.StatusSuccess,
		Params:  params,
		Reasons: reasons,
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
