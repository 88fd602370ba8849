package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"flightprice/db"
	"flightprice/ml"
	"flightprice/pipeline"
)

func main() {
	dataPath := flag.String("data", "", "training CSV path")
	charset := flag.String("charset", "", "CSV charset (utf-8 or gbk)")
	modelType := flag.String("model_type", ml.ModelTypeForest, "model type (forest or linear)")
	modelPath := flag.String("model_path", "./models/price_model.json", "model output path")
	trees := flag.Int("trees", 10, "number of trees")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	minSamplesSplit := flag.Int("min_samples_split", 5, "min samples to split a node")
	learningRate := flag.Float64("learning_rate", 0.01, "gradient descent learning rate")
	iterations := flag.Int("iterations", 100, "gradient descent iterations")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 0, "random seed, 0 uses current time")
	dbPath := flag.String("db", "", "optional sqlite path to record the run")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	records, stats, err := pipeline.LoadCSV(*dataPath, pipeline.LoaderConfig{Charset: *charset})
	if err != nil {
		log.Fatalf("failed to load training data: %v", err)
	}
	log.Printf("loaded %d of %d rows (%d skipped)", stats.Loaded, stats.TotalRows, stats.Skipped)
	for reason, count := range stats.Reasons {
		log.Printf("  %s: %d rows", reason, count)
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
	}

	progress := func(stage string, completed, total int) {
		log.Printf("training %s (%d/%d)", stage, completed, total)
	}

	result, err := ml.Train(records, ml.TrainerConfig{
		ModelType:       *modelType,
		Trees:           *trees,
		MaxDepth:        *maxDepth,
		MinSamplesSplit: *minSamplesSplit,
		LearningRate:    *learningRate,
		Iterations:      *iterations,
		TestRatio:       *testRatio,
		Seed:            *seed,
	}, progress)
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}
	artifact := result.Artifact
	log.Printf("mae=%.2f rmse=%.2f avg_price=%.2f (train=%d test=%d)",
		artifact.MAE, artifact.RMSE, artifact.AvgPrice, result.TrainRows, result.TestRows)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := artifact.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	if *dbPath != "" {
		recordRun(result, stats, *modelPath)
	}

	fmt.Printf("model saved to %s (run %s, took %s)\n", *modelPath, result.RunID, result.Duration.Round(time.Millisecond))
}

func recordRun(result *ml.TrainingResult, stats pipeline.LoadStats, modelPath string) {
	artifact := result.Artifact
	run := db.TrainingRun{
		RunID:     result.RunID,
		ModelType: artifact.ModelType,
		StartedAt: time.Now().UTC().Add(-result.Duration),
	}
	if err := db.StartTrainingRun(run); err != nil {
		log.Printf("failed to record training run: %v", err)
		return
	}
	run.Status = db.RunStatusCompleted
	run.RowsTotal = stats.TotalRows
	run.RowsUsed = stats.Loaded
	run.RowsSkipped = stats.Skipped
	run.MAE = artifact.MAE
	run.RMSE = artifact.RMSE
	run.AvgPrice = artifact.AvgPrice
	run.ArtifactPath = modelPath
	if err := db.FinishTrainingRun(run); err != nil {
		log.Printf("failed to record training result: %v", err)
	}
}
