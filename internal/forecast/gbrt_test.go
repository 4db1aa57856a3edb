package forecast

import (
	"math"
	"testing"
)

// stepData is a piecewise-constant target on one feature, easy for trees.
func stepData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		X[i] = []float64{x}
		if x < float64(n)/2 {
			y[i] = 10
		} else {
			y[i] = 50
		}
	}
	return X, y
}

func TestTrainGBRT_FitsStepFunction(t *testing.T) {
	X, y := stepData(40)
	p := DefaultParams()
	m := TrainGBRT(X, y, p)

	if got := m.Predict([]float64{2}); math.Abs(got-10) > 1.0 {
		t.Fatalf("Predict(low) = %v, want ~10", got)
	}
	if got := m.Predict([]float64{38}); math.Abs(got-50) > 1.0 {
		t.Fatalf("Predict(high) = %v, want ~50", got)
	}
}

func TestTrainGBRT_Deterministic(t *testing.T) {
	X, y := stepData(40)
	p := DefaultParams()
	a := TrainGBRT(X, y, p)
	b := TrainGBRT(X, y, p)
	probe := [][]float64{{0}, {7}, {19.5}, {33}}
	for _, x := range probe {
		if a.Predict(x) != b.Predict(x) {
			t.Fatalf("same seed diverged at %v: %v vs %v", x, a.Predict(x), b.Predict(x))
		}
	}
}

func TestTrainGBRT_ConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{7, 7, 7, 7}
	m := TrainGBRT(X, y, DefaultParams())
	if got := m.Predict([]float64{2.5}); math.Abs(got-7) > 1e-9 {
		t.Fatalf("Predict = %v, want 7", got)
	}
}

func TestFeatureImportance_SumsToOne(t *testing.T) {
	n := 60
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i), float64(i % 3)}
		y[i] = float64(i) * 2
	}
	m := TrainGBRT(X, y, DefaultParams())
	imp := m.FeatureImportance([]string{"a", "b"})
	sum := imp["a"] + imp["b"]
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importance sum = %v, want 1", sum)
	}
	if imp["a"] <= imp["b"] {
		t.Fatalf("importance a=%v not dominant over b=%v", imp["a"], imp["b"])
	}
}

func TestFeatureImportance_ZeroGain(t *testing.T) {
	m := &GBRT{Gain: []float64{0, 0}}
	imp := m.FeatureImportance([]string{"a", "b"})
	if imp["a"] != 0 || imp["b"] != 0 {
		t.Fatalf("importance = %v, want all zero", imp)
	}
}

func TestPredict_EmptyEnsembleReturnsBase(t *testing.T) {
	m := &GBRT{Base: 12.5, LearningRate: 0.1}
	if got := m.Predict([]float64{1, 2, 3}); got != 12.5 {
		t.Fatalf("Predict = %v, want base 12.5", got)
	}
}
