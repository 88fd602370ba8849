package ml

import (
	"math"
	"math/rand"
	"testing"
)

func TestErrorMetrics(t *testing.T) {
	actual := []float64{100, 200, 300}
	predicted := []float64{110, 190, 330}

	if mae := MeanAbsoluteError(actual, predicted); mae != 50.0/3 {
		t.Fatalf("unexpected MAE %f", mae)
	}
	if rmse := RootMeanSquaredError(actual, predicted); rmse != math.Sqrt(1100.0/3) {
		t.Fatalf("unexpected RMSE %f", rmse)
	}
}

func TestSplitDatasetPreservesRows(t *testing.T) {
	features := make([][]float64, 10)
	targets := make([]float64, 10)
	for i := range features {
		features[i] = []float64{float64(i)}
		targets[i] = float64(i * 10)
	}

	trainX, trainY, testX, testY := SplitDataset(features, targets, 0.3, rand.New(rand.NewSource(1)))
	if len(trainX) != 7 || len(testX) != 3 {
		t.Fatalf("expected 7/3 split, got %d/%d", len(trainX), len(testX))
	}
	if len(trainX) != len(trainY) || len(testX) != len(testY) {
		t.Fatal("features and targets fell out of step")
	}

	seen := make(map[float64]bool)
	for _, row := range append(append([][]float64{}, trainX...), testX...) {
		seen[row[0]] = true
	}
	if len(seen) != 10 {
		t.Fatalf("expected all 10 rows across the split, got %d", len(seen))
	}
}

func TestSplitDatasetInvalidRatioFallsBack(t *testing.T) {
	features := make([][]float64, 10)
	targets := make([]float64, 10)
	for i := range features {
		features[i] = []float64{float64(i)}
	}

	trainX, _, testX, _ := SplitDataset(features, targets, 1.5, rand.New(rand.NewSource(1)))
	if len(trainX) != 8 || len(testX) != 2 {
		t.Fatalf("expected default 80/20 split, got %d/%d", len(trainX), len(testX))
	}
}
