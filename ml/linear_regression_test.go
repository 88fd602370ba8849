package ml

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func linearTrainingData() ([][]float64, []float64) {
	features := [][]float64{
		{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50},
	}
	targets := []float64{15, 25, 35, 45, 55}
	return features, targets
}

func TestLinearRegressionDeterministic(t *testing.T) {
	features, targets := linearTrainingData()

	first := &LinearRegression{}
	if err := first.Train(features, targets, 0.01, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &LinearRegression{}
	if err := second.Train(features, targets, 0.01, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Weights, second.Weights) {
		t.Fatal("repeated training produced different weights")
	}
	if first.Bias != second.Bias {
		t.Fatalf("repeated training produced different bias: %f vs %f", first.Bias, second.Bias)
	}
}

func TestLinearRegressionSingleRecordConverges(t *testing.T) {
	features := [][]float64{{0, 0, 0, 10, 12, 0, 0, 150, 5}}
	targets := []float64{9000}

	residual := func(iterations int) float64 {
		model := &LinearRegression{}
		if err := model.Train(features, targets, 0.01, iterations); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		value, err := model.Predict(features[0])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return math.Abs(value - targets[0])
	}

	short := residual(100)
	long := residual(1000)
	if long >= short {
		t.Fatalf("expected error to shrink with more iterations: %f then %f", short, long)
	}
	if long >= 1 {
		t.Fatalf("expected near-zero error after 1000 iterations, got %f", long)
	}
}

func TestLinearRegressionConstantFeatureNoNaN(t *testing.T) {
	// The second feature never varies, so its std is substituted with 1.
	features := [][]float64{{1, 7}, {2, 7}, {3, 7}}
	targets := []float64{10, 20, 30}

	model := &LinearRegression{}
	if err := model.Train(features, targets, 0.01, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.StdX[1] != 1 {
		t.Fatalf("expected substituted std 1, got %f", model.StdX[1])
	}
	value, err := model.Predict([]float64{2, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		t.Fatalf("expected finite prediction, got %f", value)
	}
}

func TestLinearRegressionClampsNegativePredictions(t *testing.T) {
	model := &LinearRegression{
		Weights: []float64{-100},
		Bias:    0,
		MeanX:   []float64{0},
		StdX:    []float64{1},
	}
	value, err := model.Predict([]float64{5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 0 {
		t.Fatalf("expected clamp to 0, got %f", value)
	}
}

func TestLinearRegressionTrainEmpty(t *testing.T) {
	model := &LinearRegression{}
	if err := model.Train(nil, nil, 0.01, 100); !errors.Is(err, ErrEmptyTrainingSet) {
		t.Fatalf("expected ErrEmptyTrainingSet, got %v", err)
	}
}

func TestLinearRegressionPredictUntrained(t *testing.T) {
	model := &LinearRegression{}
	if _, err := model.Predict([]float64{1}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}
