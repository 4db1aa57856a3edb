package forecast

import (
	"math"
	"time"
)

// MinObservations is the training gate: pairs with fewer observations are
// skipped, not failed.
const MinObservations = 30

// NowUnix returns current time in epoch seconds. Split for testability.
var NowUnix = func() int64 { return time.Now().UTC().Unix() }

// EvalMetrics are held-out-tail evaluation results of one trained model.
type EvalMetrics struct {
	MAE       float64 `json:"mae"`
	RMSE      float64 `json:"rmse"`
	MAPE      float64 `json:"mape"`
	R2        float64 `json:"r2"`
	TrainSize int     `json:"trainSize"`
	TestSize  int     `json:"testSize"`
}

// TrainedModel is the persistable regression artifact for one (market, crop)
// pair, with its feature importance and evaluation metrics.
type TrainedModel struct {
	Market               string             `json:"market"`
	Crop                 string             `json:"crop"`
	Model                *GBRT              `json:"model"`
	Importance           map[string]float64 `json:"importance"`
	Eval                 EvalMetrics        `json:"eval"`
	TrainedAtEpochSecond int64              `json:"trainedAt"`
}

// Status tags a training outcome.
type Status string

const (
	StatusTrained Status = "trained"
	StatusSkipped Status = "skipped"
)

// Outcome is the tagged result of training one pair: either a model or an
// explicit insufficient-data skip. Skips are reported, never raised.
type Outcome struct {
	Market       string        `json:"market"`
	Crop         string        `json:"crop"`
	Status       Status        `json:"status"`
	Observations int           `json:"observations"`
	Model        *TrainedModel `json:"-"`
}

// Train fits one model on the pair's feature series. The split is
// chronological: first 80% train, trailing 20% held out for evaluation.
func Train(s Series, p Params) Outcome {
	n := len(s.Rows)
	out := Outcome{Market: s.Market, Crop: s.Crop, Observations: n}
	if n < MinObservations {
		out.Status = StatusSkipped
		return out
	}

	split := int(float64(n) * 0.8)
	X := make([][]float64, n)
	y := make([]float64, n)
	for i, row := range s.Rows {
		X[i] = row.Features
		y[i] = row.Price
	}

	gbrt := TrainGBRT(X[:split], y[:split], p)

	pred := make([]float64, n-split)
	for i, x := range X[split:] {
		pred[i] = gbrt.Predict(x)
	}
	eval := evaluate(y[split:], pred)
	eval.TrainSize = split
	eval.TestSize = n - split

	out.Status = StatusTrained
	out.Model = &TrainedModel{
		Market:               s.Market,
		Crop:                 s.Crop,
		Model:                gbrt,
		Importance:           gbrt.FeatureImportance(FeatureNames),
		Eval:                 eval,
		TrainedAtEpochSecond: NowUnix(),
	}
	return out
}

// evaluate computes MAE, RMSE, MAPE and R2 of predictions against truth.
func evaluate(truth, pred []float64) EvalMetrics {
	n := float64(len(truth))
	if n == 0 {
		return EvalMetrics{}
	}
	var absSum, sqSum, apeSum, truthSum float64
	for i := range truth {
		err := truth[i] - pred[i]
		absSum += math.Abs(err)
		sqSum += err * err
		if truth[i] != 0 {
			apeSum += math.Abs(err / truth[i])
		}
		truthSum += truth[i]
	}
	truthMean := truthSum / n
	var totSS float64
	for _, t := range truth {
		d := t - truthMean
		totSS += d * d
	}
	r2 := 0.0
	if totSS > 0 {
		r2 = 1 - sqSum/totSS
	}
	return EvalMetrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		MAPE: apeSum / n * 100,
		R2:   r2,
	}
}
