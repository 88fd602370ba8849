package ml

import (
	"errors"
	"math/rand"
	"sync"
)

// RandomForest bags independently fitted regression trees. Prediction is the
// arithmetic mean of the individual tree predictions.
type RandomForest struct {
	Trees []DecisionTree `json:"trees"`
}

// Train fits nTrees trees, each on a bootstrap sample of the training set
// drawn with replacement. Randomness comes only from rng: per-tree seeds are
// drawn up front, so the concurrent tree fitting stays reproducible for a
// given seed regardless of scheduling.
func (rf *RandomForest) Train(features [][]float64, targets []float64, nTrees, maxDepth, minSamplesSplit int, rng *rand.Rand) error {
	if len(features) == 0 || len(targets) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if nTrees <= 0 {
		nTrees = 10
	}
	if rng == nil {
		return errors.New("rng is required")
	}

	seeds := make([]int64, nTrees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]DecisionTree, nTrees)
	errs := make([]error, nTrees)
	var wg sync.WaitGroup
	for i := 0; i < nTrees; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			treeRng := rand.New(rand.NewSource(seeds[i]))
			sampleFeatures, sampleTargets := bootstrapSample(features, targets, treeRng)
			errs[i] = trees[i].Train(sampleFeatures, sampleTargets, maxDepth, minSamplesSplit)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	rf.Trees = trees
	return nil
}

// Predict returns the mean of all tree predictions.
func (rf *RandomForest) Predict(features []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, ErrNotTrained
	}
	sum := 0.0
	for i := range rf.Trees {
		value, err := rf.Trees[i].Predict(features)
		if err != nil {
			return 0, err
		}
		sum += value
	}
	return sum / float64(len(rf.Trees)), nil
}

// bootstrapSample draws len(features) rows with replacement.
func bootstrapSample(features [][]float64, targets []float64, rng *rand.Rand) ([][]float64, []float64) {
	n := len(features)
	sampleFeatures := make([][]float64, n)
	sampleTargets := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := rng.Intn(n)
		sampleFeatures[i] = features[idx]
		sampleTargets[i] = targets[idx]
	}
	return sampleFeatures, sampleTargets
}
