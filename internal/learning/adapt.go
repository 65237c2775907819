package learning

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aristath/sentinel-brain/internal/domain"
)

// AdaptResult reports the outcome of adapting a pooled model to a new market.
type AdaptResult struct {
	Status        domain.Status      `json:"status"`
	ModelID       domain.ModelID     `json:"model_id,omitempty"`
	ParentModelID domain.ModelID     `json:"parent_model_id,omitempty"`
	Performance   map[string]float64 `json:"performance,omitempty"`
	ModelPath     string             `json:"model_path,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
}

// AdaptToNewMarket fine-tunes the best pooled model on the new market's data
// and registers the adapted copy as a child of the original. The original
// stays in the pool untouched.
func (o *Orchestrator) AdaptToNewMarket(ctx context.Context, marketName string, series domain.MarketSeries) AdaptResult {
	if err := ctx.Err(); err != nil {
		return AdaptResult{Status: domain.StatusFailed, ErrorMessage: err.Error()}
	}

	base, ok := o.pool.Best()
	if !ok {
		return AdaptResult{
			Status:       domain.StatusNoModels,
			ErrorMessage: "no models available",
		}
	}

	res := o.transferL.FineTune(base.Estimator, series)
	if !res.Status.OK() {
		return AdaptResult{
			Status:        res.Status,
			ParentModelID: base.ModelID,
			ErrorMessage:  res.ErrorMessage,
		}
	}

	modelID := domain.ModelID(uuid.New().String())
	cand := &strategyCandidate{
		method:  base.Method,
		model:   res.Model,
		metrics: res.Metrics,
	}
	path, persistErr := o.persistAndRegister(modelID, cand, base.ModelID)

	out := AdaptResult{
		Status:        domain.StatusSuccess,
		ModelID:       modelID,
		ParentModelID: base.ModelID,
		Performance:   res.Metrics.Map(),
		ModelPath:     path,
	}
	if persistErr != nil {
		out.Status = domain.StatusPersistenceFailed
		out.ErrorMessage = persistErr.Error()
	}

	o.log.Info().
		Str("market", marketName).
		Str("model_id", string(modelID)).
		Str("parent_model_id", string(base.ModelID)).
		Float64("r2", res.Metrics.R2).
		Msg("Adapted pooled model to new market")
	return out
}

// CleanupOldModels shrinks the pool to the keep best models, removing the
// evicted artifacts from disk and the registry. It returns the evicted IDs.
func (o *Orchestrator) CleanupOldModels(keep int) []domain.ModelID {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	return o.evictLocked(keep)
}

// evictLocked requires writeMu to be held.
func (o *Orchestrator) evictLocked(keep int) []domain.ModelID {
	evicted := o.pool.Cleanup(keep)
	if len(evicted) == 0 {
		return nil
	}

	ids := make([]domain.ModelID, 0, len(evicted))
	for _, rec := range evicted {
		ids = append(ids, rec.ModelID)
		if rec.Path != "" {
			if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
				o.log.Warn().Err(err).Str("path", rec.Path).Msg("Failed to remove evicted model artifact")
			}
		}
		if o.store != nil {
			if err := o.store.UnregisterModel(rec.ModelID); err != nil {
				o.log.Warn().Err(err).Str("model_id", string(rec.ModelID)).Msg("Failed to unregister evicted model")
			}
		}
	}

	o.log.Info().Int("evicted", len(ids)).Int("kept", o.pool.Len()).Msg("Model pool cleaned up")
	return ids
}

// GetLearningStatus reports engine health: session counters, pool contents,
// configuration and process resource usage.
func (o *Orchestrator) GetLearningStatus() map[string]any {
	o.statsMu.Lock()
	sessions := map[string]any{
		"total":      o.totalSessions,
		"successful": o.successful,
	}
	if o.totalSessions > 0 {
		sessions["success_rate"] = float64(o.successful) / float64(o.totalSessions)
		sessions["average_learning_time"] = o.totalTime / float64(o.totalSessions)
	} else {
		sessions["success_rate"] = 0.0
		sessions["average_learning_time"] = 0.0
	}
	dist := make(map[string]int, len(o.methodCounts))
	for method, count := range o.methodCounts {
		dist[string(method)] = count
	}
	sessions["method_distribution"] = dist
	o.statsMu.Unlock()

	if o.store != nil {
		if stats, err := o.store.Stats(); err == nil {
			sessions["stored_total"] = stats.Total
			sessions["stored_successful"] = stats.Successful
		} else {
			o.log.Warn().Err(err).Msg("Failed to read stored session stats")
		}
	}

	poolModels := o.pool.Snapshot()
	models := make([]map[string]any, 0, len(poolModels))
	var r2Sum float64
	for _, rec := range poolModels {
		r2Sum += rec.Performance.R2
		models = append(models, map[string]any{
			"model_id":   string(rec.ModelID),
			"method":     string(rec.Method),
			"r2":         rec.Performance.R2,
			"created_at": rec.CreatedAt.Format(time.RFC3339),
		})
	}
	avgPerformance := 0.0
	if len(poolModels) > 0 {
		avgPerformance = r2Sum / float64(len(poolModels))
	}

	return map[string]any{
		"sessions": sessions,
		"pool": map[string]any{
			"size":                len(poolModels),
			"limit":               o.cfg.MaxPoolSize,
			"average_performance": avgPerformance,
			"models":              models,
		},
		"config":    o.cfg.Snapshot(),
		"resources": resourceSnapshot(),
		"strategies": map[string]any{
			"meta_learning":     o.metaL.Summary(),
			"transfer_learning": o.transferL.Summary(),
			"auto_ml":           o.automlS.Summary(),
			"nas":               o.nasS.Summary(),
		},
	}
}

// resourceSnapshot reports current process memory and CPU usage. Failures
// degrade to an empty map rather than failing the status call.
func resourceSnapshot() map[string]any {
	out := map[string]any{}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return out
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		out["memory_rss_bytes"] = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		out["cpu_percent"] = cpu
	}
	return out
}

// ExportLearningSummary assembles a JSON-serializable report of everything
// the engine has learned: session history, the pool and per-strategy
// summaries.
func (o *Orchestrator) ExportLearningSummary() map[string]any {
	summary := map[string]any{
		"generated_at": time.Now().Format(time.RFC3339),
		"status":       o.GetLearningStatus(),
		"transfer_history": func() []map[string]any {
			recs := o.transferL.History()
			out := make([]map[string]any, 0, len(recs))
			for _, rec := range recs {
				out = append(out, map[string]any{
					"source_domain":     rec.SourceDomain,
					"target_domain":     rec.TargetDomain,
					"domain_similarity": rec.DomainSimilarity,
					"transfer_method":   rec.TransferMethod,
					"target_data_size":  rec.TargetDataSize,
					"timestamp":         rec.Timestamp.Format(time.RFC3339),
				})
			}
			return out
		}(),
		"evolution_history": func() []map[string]any {
			recs := o.nasS.History()
			out := make([]map[string]any, 0, len(recs))
			for _, rec := range recs {
				out = append(out, map[string]any{
					"from":      rec.From,
					"to":        rec.To,
					"feedback":  rec.Feedback,
					"action":    rec.Action,
					"timestamp": rec.Timestamp.Format(time.RFC3339),
				})
			}
			return out
		}(),
	}

	if o.store != nil {
		if sessions, err := o.store.Sessions(100); err == nil {
			stored := make([]map[string]any, 0, len(sessions))
			for _, rec := range sessions {
				stored = append(stored, map[string]any{
					"id":            rec.ID,
					"method":        string(rec.Method),
					"success":       rec.Success,
					"r2":            rec.R2,
					"learning_time": rec.LearningTime,
					"created_at":    rec.CreatedAt.Format(time.RFC3339),
				})
			}
			summary["stored_sessions"] = stored
		}
	}

	if knowledge := o.metaL.Knowledge(); knowledge != nil {
		summary["meta_knowledge"] = map[string]any{
			"task_count": len(knowledge.TaskIDs),
			"learned_at": knowledge.LearnedAt.Format(time.RFC3339),
		}
	}

	return summary
}
