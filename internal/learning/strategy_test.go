package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-brain/internal/domain"
)

func TestOptimizeStrategyHealthyPerformance(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{RiskLevel: 0.5, PositionSize: 0.1, StopLoss: 0.05, TakeProfit: 0.1},
		domain.PerformanceMetrics{SharpeRatio: 1.5, MaxDrawdown: 0.05, WinRate: 0.6, ProfitFactor: 2.0},
	)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Empty(t, res.Reasons)
	assert.Equal(t, 0.5, res.Params["risk_level"])
	assert.Equal(t, 0.1, res.Params["position_size"])
	assert.Equal(t, 0.05, res.Params["stop_loss"])
	assert.Equal(t, 0.1, res.Params["take_profit"])
}

func TestOptimizeStrategyLowSharpe(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{RiskLevel: 0.5, PositionSize: 0.2},
		domain.PerformanceMetrics{SharpeRatio: 0.2, MaxDrawdown: 0.05, WinRate: 0.6, ProfitFactor: 2.0},
	)

	assert.InDelta(t, 0.4, res.Params["risk_level"], 1e-9)
	assert.InDelta(t, 0.16, res.Params["position_size"], 1e-9)
	require.Len(t, res.Reasons, 1)
}

func TestOptimizeStrategyHighDrawdown(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{StopLoss: 0.1},
		domain.PerformanceMetrics{SharpeRatio: 1.0, MaxDrawdown: 0.25, WinRate: 0.6, ProfitFactor: 2.0},
	)

	assert.InDelta(t, 0.08, res.Params["stop_loss"], 1e-9)
	assert.InDelta(t, 0.14, res.Params["max_position_size"], 1e-9)
	require.Len(t, res.Reasons, 1)
}

func TestOptimizeStrategyLowWinRate(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{TakeProfit: 0.1},
		domain.PerformanceMetrics{SharpeRatio: 1.0, MaxDrawdown: 0.05, WinRate: 0.3, ProfitFactor: 2.0},
	)

	assert.InDelta(t, 0.12, res.Params["take_profit"], 1e-9)
	assert.InDelta(t, 0.7, res.Params["entry_threshold"], 1e-9)
}

func TestOptimizeStrategyEntryThresholdCapped(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	// Repeated low win rate reviews never push the threshold past 0.9.
	res := orch.OptimizeStrategy(
		domain.StrategyParams{},
		domain.PerformanceMetrics{SharpeRatio: 1.0, MaxDrawdown: 0.05, WinRate: 0.1, ProfitFactor: 2.0},
	)
	assert.LessOrEqual(t, res.Params["entry_threshold"], 0.9)
}

func TestOptimizeStrategyLowProfitFactor(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{},
		domain.PerformanceMetrics{SharpeRatio: 1.0, MaxDrawdown: 0.05, WinRate: 0.6, ProfitFactor: 1.0},
	)

	assert.InDelta(t, 2.5, res.Params["risk_reward_ratio"], 1e-9)
	require.Len(t, res.Reasons, 1)
}

func TestOptimizeStrategyAllRulesFire(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{RiskLevel: 0.5, PositionSize: 0.1, StopLoss: 0.05, TakeProfit: 0.1},
		domain.PerformanceMetrics{SharpeRatio: 0.1, MaxDrawdown: 0.3, WinRate: 0.2, ProfitFactor: 0.8},
	)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Len(t, res.Reasons, 4)
}

func TestOptimizeStrategyZeroParamsUseDefaults(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	res := orch.OptimizeStrategy(
		domain.StrategyParams{},
		domain.PerformanceMetrics{SharpeRatio: 1.5, MaxDrawdown: 0.05, WinRate: 0.6, ProfitFactor: 2.0},
	)

	assert.Equal(t, 0.5, res.Params["risk_level"])
	assert.Equal(t, 0.1, res.Params["position_size"])
	assert.Equal(t, 2.0, res.Params["risk_reward_ratio"])
}
