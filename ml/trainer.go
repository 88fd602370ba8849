package ml

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// TrainerConfig selects the model family and its hyperparameters. Zero
// values fall back to the defaults below.
type TrainerConfig struct {
	ModelType       string
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	LearningRate    float64
	Iterations      int
	TestRatio       float64
	Seed            int64
	RunID           string
}

// TrainingResult carries the finished artifact plus run bookkeeping.
type TrainingResult struct {
	Artifact  *ModelArtifact
	RunID     string
	Duration  time.Duration
	TrainRows int
	TestRows  int
}

// ProgressFunc receives coarse stage updates during a training run.
type ProgressFunc func(stage string, completed, total int)

// Train fits a model on the records and returns a self-contained artifact.
// The same seed always produces the same artifact for the same input.
func Train(records []FlightRecord, config TrainerConfig, progress ProgressFunc) (*TrainingResult, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if config.ModelType == "" {
		config.ModelType = ModelTypeForest
	}
	if config.Trees <= 0 {
		config.Trees = 10
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = 10
	}
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 5
	}
	if config.LearningRate <= 0 {
		config.LearningRate = 0.01
	}
	if config.Iterations <= 0 {
		config.Iterations = 100
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	if progress == nil {
		progress = func(string, int, int) {}
	}

	start := time.Now()

	progress("encode", 1, 4)
	encoder := NewFeatureEncoder()
	features := make([][]float64, len(records))
	targets := make([]float64, len(records))
	for i, record := range records {
		features[i] = encoder.Encode(record, true)
		targets[i] = record.Price
	}

	rng := rand.New(rand.NewSource(config.Seed))
	trainX, trainY, testX, testY := SplitDataset(features, targets, config.TestRatio, rng)

	progress("fit", 2, 4)
	var model Regressor
	switch config.ModelType {
	case ModelTypeForest:
		forest := &RandomForest{}
		if err := forest.Train(trainX, trainY, config.Trees, config.MaxDepth, config.MinSamplesSplit, rng); err != nil {
			return nil, err
		}
		model = forest
	case ModelTypeLinear:
		linear := &LinearRegression{}
		if err := linear.Train(trainX, trainY, config.LearningRate, config.Iterations); err != nil {
			return nil, err
		}
		model = linear
	default:
		return nil, fmt.Errorf("unsupported model type %q", config.ModelType)
	}

	progress("evaluate", 3, 4)
	evalX, evalY := testX, testY
	if len(evalX) == 0 {
		// Splits of tiny datasets can leave the test side empty.
		evalX, evalY = trainX, trainY
	}
	predicted := make([]float64, len(evalX))
	for i, row := range evalX {
		value, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		predicted[i] = value
	}

	artifact := &ModelArtifact{
		SchemaVersion: CurrentSchemaVersion,
		ModelType:     config.ModelType,
		TrainedAt:     time.Now().UTC(),
		RunID:         config.RunID,
		FeatureNames:  FeatureNames(),
		AirlineMap:    encoder.Airlines,
		SourceMap:     encoder.Sources,
		DestMap:       encoder.Destinations,
		ClassMap:      encoder.Classes,
		MAE:           MeanAbsoluteError(evalY, predicted),
		RMSE:          RootMeanSquaredError(evalY, predicted),
		AvgPrice:      Mean(targets),
	}
	switch m := model.(type) {
	case *RandomForest:
		artifact.Trees = m.Trees
	case *LinearRegression:
		artifact.Weights = m.Weights
		artifact.Bias = m.Bias
		artifact.MeanX = m.MeanX
		artifact.StdX = m.StdX
	}

	progress("done", 4, 4)
	return &TrainingResult{
		Artifact:  artifact,
		RunID:     config.RunID,
		Duration:  time.Since(start),
		TrainRows: len(trainX),
		TestRows:  len(testX),
	}, nil
}
