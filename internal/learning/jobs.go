package learning

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/domain"
)

// MarketDataProvider supplies fresh market series for scheduled adaptation.
type MarketDataProvider interface {
	Markets() []string
	Series(ctx context.Context, market string) (domain.MarketSeries, error)
}

// AdaptationJob periodically re-adapts the best pooled model to each known
// market, keeping the pool in step with drifting conditions.
type AdaptationJob struct {
	orchestrator *Orchestrator
	provider     MarketDataProvider
	cron         *cron.Cron
	log          zerolog.Logger
}

// NewAdaptationJob creates the job. It only runs once Start is called and
// the configured schedule is non-empty.
func NewAdaptationJob(orchestrator *Orchestrator, provider MarketDataProvider, log zerolog.Logger) *AdaptationJob {
	return &AdaptationJob{
		orchestrator: orchestrator,
		provider:     provider,
		cron:         cron.New(),
		log:          log.With().Str("component", "adaptation_job").Logger(),
	}
}

// Start registers the cron entry and begins the schedule. A missing schedule
// disables the job without error.
func (j *AdaptationJob) Start(ctx context.Context) error {
	schedule := j.orchestrator.cfg.AdaptationSchedule
	if schedule == "" {
		j.log.Info().Msg("No adaptation schedule configured, job disabled")
		return nil
	}

	_, err := j.cron.AddFunc(schedule, func() {
		j.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.log.Info().Str("schedule", schedule).Msg("Adaptation job started")
	return nil
}

// Stop halts the schedule and waits for a running iteration to finish.
func (j *AdaptationJob) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.log.Info().Msg("Adaptation job stopped")
}

func (j *AdaptationJob) runOnce(ctx context.Context) {
	markets := j.provider.Markets()
	j.log.Debug().Int("markets", len(markets)).Msg("Adaptation sweep starting")

	for _, market := range markets {
		if ctx.Err() != nil {
			return
		}

		series, err := j.provider.Series(ctx, market)
		if err != nil {
			j.log.Warn().Err(err).Str("market", market).Msg("Failed to fetch series for adaptation")
			continue
		}

		res := j.orchestrator.AdaptToNewMarket(ctx, market, series)
		if !res.Status.OK() {
			j.log.Warn().
				Str("market", market).
				Str("status", string(res.Status)).
				Str("error", res.ErrorMessage).
				Msg("Adaptation skipped")
			continue
		}
		j.log.Info().
			Str("market", market).
			Str("model_id", string(res.ModelID)).
			Msg("Market adaptation complete")
	}
}
