package learning

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-brain/internal/domain"
)

type staticProvider struct {
	markets map[string]domain.MarketSeries
}

func (p *staticProvider) Markets() []string {
	out := make([]string, 0, len(p.markets))
	for name := range p.markets {
		out = append(out, name)
	}
	return out
}

func (p *staticProvider) Series(_ context.Context, market string) (domain.MarketSeries, error) {
	return p.markets[market], nil
}

func TestAdaptationJobDisabledWithoutSchedule(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))
	job := NewAdaptationJob(orch, &staticProvider{}, zerolog.Nop())

	require.NoError(t, job.Start(context.Background()))
	job.Stop()
}

func TestAdaptationJobStartsWithSchedule(t *testing.T) {
	cfg := fastConfig(t)
	cfg.AdaptationSchedule = "@every 1h"
	orch := newTestOrchestrator(t, cfg)
	job := NewAdaptationJob(orch, &staticProvider{}, zerolog.Nop())

	require.NoError(t, job.Start(context.Background()))
	job.Stop()
}

func TestAdaptationJobRejectsBadSchedule(t *testing.T) {
	cfg := fastConfig(t)
	cfg.AdaptationSchedule = "not a cron expression"
	orch := newTestOrchestrator(t, cfg)
	job := NewAdaptationJob(orch, &staticProvider{}, zerolog.Nop())

	assert.Error(t, job.Start(context.Background()))
}

func TestAdaptationSweepAdaptsPooledModel(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))

	learned := orch.LearnFromMarket(context.Background(), LearnRequest{
		MarketName: "btc_usd",
		Market:     syntheticSeries(120, 0),
		PriorTasks: priorTasks(6),
	})
	require.True(t, learned.Success, learned.ErrorMessage)

	provider := &staticProvider{markets: map[string]domain.MarketSeries{
		"sol_usd": syntheticSeries(120, 1),
	}}
	job := NewAdaptationJob(orch, provider, zerolog.Nop())

	job.runOnce(context.Background())
	assert.Equal(t, 2, orch.Pool().Len())
}

func TestAdaptationSweepWithEmptyPool(t *testing.T) {
	orch := newTestOrchestrator(t, fastConfig(t))
	provider := &staticProvider{markets: map[string]domain.MarketSeries{
		"sol_usd": syntheticSeries(120, 1),
	}}
	job := NewAdaptationJob(orch, provider, zerolog.Nop())

	// A sweep with nothing to adapt logs and moves on.
	job.runOnce(context.Background())
	assert.Equal(t, 0, orch.Pool().Len())
}
