package estimator

import "math"

// Metrics holds the regression evaluation metrics reported for a model.
type Metrics struct {
	MSE  float64 `json:"mse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
}

// Evaluate computes regression metrics for predictions against true labels.
func Evaluate(predicted, actual []float64) Metrics {
	n := len(actual)
	if n == 0 || len(predicted) != n {
		return Metrics{}
	}

	var sse, sae float64
	var meanActual float64
	for _, v := range actual {
		meanActual += v
	}
	meanActual /= float64(n)

	var sst float64
	for i := range actual {
		diff := predicted[i] - actual[i]
		sse += diff * diff
		sae += math.Abs(diff)
		dev := actual[i] - meanActual
		sst += dev * dev
	}

	mse := sse / float64(n)
	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return Metrics{
		MSE:  mse,
		MAE:  sae / float64(n),
		R2:   r2,
		RMSE: math.Sqrt(mse),
	}
}

// Map returns the metrics as the flat map shape used in LearningResult.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"mse":  m.MSE,
		"mae":  m.MAE,
		"r2":   m.R2,
		"rmse": m.RMSE,
	}
}
