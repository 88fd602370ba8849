package ml

import "errors"

const (
	ModelTypeLinear = "linear"
	ModelTypeForest = "forest"
)

var (
	ErrEmptyTrainingSet = errors.New("training set is empty")
	ErrNotTrained       = errors.New("model not trained")
)

// Regressor is the prediction contract shared by both model families.
// Implementations are read-only after training and safe for concurrent use.
type Regressor interface {
	Predict(features []float64) (float64, error)
}
