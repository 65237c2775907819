package features

import (
	"fmt"
	"math"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/pkg/formulas"
)

// FeatureColumns names the engineered columns of a supervised dataset, in
// row order.
var FeatureColumns = []string{
	"return_1",
	"return_5",
	"ma5_ratio",
	"ma20_ratio",
	"volatility_10",
	"rsi_14",
	"bollinger_position",
	"volume_ratio",
}

// Dataset is a supervised regression view over a market series: engineered
// feature rows and next-period return labels, time-ordered.
type Dataset struct {
	X [][]float64
	Y []float64
}

// Len returns the number of valid rows.
func (d *Dataset) Len() int { return len(d.X) }

// BuildDataset engineers features from a market series and pairs each row
// with the next period's return as the label. Rows with undefined values
// (warm-up windows, NaNs) are dropped. Fails with an error when fewer than
// minRows valid rows remain.
func BuildDataset(series domain.MarketSeries, minRows int) (*Dataset, error) {
	closes := series.Closes()
	volumes := series.Volumes()
	n := len(closes)

	// Warm-up: the longest lookback below is 20 periods.
	const warmup = 20
	if n < warmup+2 {
		return nil, fmt.Errorf("need at least %d observations, got %d", warmup+2, n)
	}

	rsi := formulas.RSISeries(closes, 14)
	ma5 := formulas.SMA(closes, 5)
	ma20 := formulas.SMA(closes, 20)

	ds := &Dataset{}
	for i := warmup; i < n-1; i++ {
		if closes[i] == 0 || closes[i-1] == 0 || closes[i-5] == 0 {
			continue
		}

		ret1 := closes[i]/closes[i-1] - 1
		ret5 := closes[i]/closes[i-5] - 1

		vol10 := formulas.StdDev(formulas.Returns(closes[i-10 : i+1]))
		bb := formulas.BollingerPosition(closes[:i+1], 20, 2.0)

		volRatio := 1.0
		volMean := formulas.Mean(volumes[i-10 : i])
		if volMean > 0 {
			volRatio = volumes[i] / volMean
		}

		row := []float64{
			ret1,
			ret5,
			closes[i] / ma5[i],
			closes[i] / ma20[i],
			vol10,
			rsi[i] / 100.0,
			bb,
			volRatio,
		}
		label := closes[i+1]/closes[i] - 1

		if hasNaN(row) || math.IsNaN(label) || math.IsInf(label, 0) {
			continue
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, label)
	}

	if ds.Len() < minRows {
		return nil, fmt.Errorf("only %d valid rows after feature construction, need %d", ds.Len(), minRows)
	}
	return ds, nil
}

// SplitHoldout splits the dataset into a time-ordered train/holdout pair.
// frac is the holdout fraction; at least one row lands in each part.
func (d *Dataset) SplitHoldout(frac float64) (train, holdout *Dataset) {
	cut := int(float64(d.Len()) * (1 - frac))
	if cut < 1 {
		cut = 1
	}
	if cut >= d.Len() {
		cut = d.Len() - 1
	}
	return &Dataset{X: d.X[:cut], Y: d.Y[:cut]}, &Dataset{X: d.X[cut:], Y: d.Y[cut:]}
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
