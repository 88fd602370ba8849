package ml

import (
	"errors"
	"math"
)

// LinearRegression is a linear model fitted with batch gradient descent over
// standardized features. MeanX and StdX hold the training-time statistics and
// are reapplied verbatim at prediction time.
type LinearRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	MeanX   []float64 `json:"mean_x"`
	StdX    []float64 `json:"std_x"`
}

// Train standardizes every feature, zero-initializes weights and bias, then
// runs a fixed number of batch gradient descent iterations with a fixed
// learning rate. No early stopping and no convergence check: the iteration
// count bounds the work.
func (lr *LinearRegression) Train(features [][]float64, targets []float64, learningRate float64, iterations int) error {
	if len(features) == 0 || len(targets) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if learningRate <= 0 {
		learningRate = 0.01
	}
	if iterations <= 0 {
		iterations = 100
	}

	n := len(features)
	featureCount := len(features[0])
	lr.MeanX, lr.StdX = featureStats(features, featureCount)

	standardized := make([][]float64, n)
	for i, row := range features {
		standardized[i] = lr.standardize(row)
	}

	lr.Weights = make([]float64, featureCount)
	lr.Bias = 0

	residuals := make([]float64, n)
	for iter := 0; iter < iterations; iter++ {
		for i, row := range standardized {
			prediction := lr.Bias
			for j, weight := range lr.Weights {
				prediction += weight * row[j]
			}
			residuals[i] = targets[i] - prediction
		}

		for j := range lr.Weights {
			gradient := 0.0
			for i, row := range standardized {
				gradient += residuals[i] * row[j]
			}
			gradient = -2 * gradient / float64(n)
			lr.Weights[j] -= learningRate * gradient
		}

		biasGradient := 0.0
		for _, residual := range residuals {
			biasGradient += residual
		}
		biasGradient = -2 * biasGradient / float64(n)
		lr.Bias -= learningRate * biasGradient
	}

	return nil
}

// Predict standardizes the input with the stored training statistics and
// returns bias + dot(weights, x), clamped at zero: a price is never negative.
func (lr *LinearRegression) Predict(features []float64) (float64, error) {
	if len(lr.Weights) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != len(lr.Weights) {
		return 0, errors.New("feature length mismatch")
	}

	prediction := lr.Bias
	for j, weight := range lr.Weights {
		prediction += weight * (features[j] - lr.MeanX[j]) / lr.StdX[j]
	}
	if prediction < 0 {
		prediction = 0
	}
	return prediction, nil
}

func (lr *LinearRegression) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, value := range row {
		out[j] = (value - lr.MeanX[j]) / lr.StdX[j]
	}
	return out
}

// featureStats computes the per-feature mean and population standard
// deviation. A standard deviation <= 0 is stored as 1 so that constant
// features standardize to zero instead of dividing by zero.
func featureStats(features [][]float64, featureCount int) ([]float64, []float64) {
	n := float64(len(features))
	means := make([]float64, featureCount)
	stds := make([]float64, featureCount)

	for j := 0; j < featureCount; j++ {
		sum := 0.0
		for _, row := range features {
			sum += row[j]
		}
		means[j] = sum / n
	}

	for j := 0; j < featureCount; j++ {
		sum := 0.0
		for _, row := range features {
			diff := row[j] - means[j]
			sum += diff * diff
		}
		std := math.Sqrt(sum / n)
		if std <= 0 {
			std = 1
		}
		stds[j] = std
	}

	return means, stds
}
