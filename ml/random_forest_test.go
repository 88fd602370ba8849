package ml

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func forestTrainingData() ([][]float64, []float64) {
	features := [][]float64{
		{0, 10}, {1, 12}, {2, 9}, {3, 15},
		{4, 20}, {5, 18}, {6, 25}, {7, 30},
	}
	targets := []float64{100, 120, 90, 150, 200, 180, 250, 300}
	return features, targets
}

func TestRandomForestPredictIsMeanOfTrees(t *testing.T) {
	features, targets := forestTrainingData()

	model := &RandomForest{}
	rng := rand.New(rand.NewSource(42))
	if err := model.Train(features, targets, 5, 3, 2, rng); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.Trees) != 5 {
		t.Fatalf("expected 5 trees, got %d", len(model.Trees))
	}

	input := []float64{3, 15}
	sum := 0.0
	for i := range model.Trees {
		value, err := model.Trees[i].Predict(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sum += value
	}
	want := sum / float64(len(model.Trees))

	got, err := model.Predict(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected mean of tree predictions %f, got %f", want, got)
	}
}

func TestRandomForestDeterministicWithSeed(t *testing.T) {
	features, targets := forestTrainingData()

	first := &RandomForest{}
	if err := first.Train(features, targets, 4, 3, 2, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &RandomForest{}
	if err := second.Train(features, targets, 4, 3, 2, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Trees, second.Trees) {
		t.Fatal("same seed produced different forests")
	}
}

func TestRandomForestTrainEmpty(t *testing.T) {
	model := &RandomForest{}
	err := model.Train(nil, nil, 3, 3, 2, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrEmptyTrainingSet) {
		t.Fatalf("expected ErrEmptyTrainingSet, got %v", err)
	}
}

func TestRandomForestTrainRequiresRNG(t *testing.T) {
	features, targets := forestTrainingData()
	model := &RandomForest{}
	if err := model.Train(features, targets, 3, 3, 2, nil); err == nil {
		t.Fatal("expected error for nil rng")
	}
}

func TestRandomForestPredictUntrained(t *testing.T) {
	model := &RandomForest{}
	if _, err := model.Predict([]float64{1, 2}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}
