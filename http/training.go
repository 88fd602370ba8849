package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"flightprice/db"
	"flightprice/metrics"
	"flightprice/ml"
	"flightprice/monitoring"
	"flightprice/pipeline"
)

// TrainingConfig 训练任务的服务端配置
type TrainingConfig struct {
	DataPath        string
	Charset         string
	ModelType       string
	ModelPath       string
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	LearningRate    float64
	Iterations      int
	TestRatio       float64
	Seed            int64
}

var (
	trainingMu     sync.Mutex
	trainingActive bool
	trainingConfig TrainingConfig

	progressHub *monitoring.ProgressHub
)

// SetTrainingConfig 注入训练配置，启动时调用
func SetTrainingConfig(config TrainingConfig) {
	trainingMu.Lock()
	trainingConfig = config
	trainingMu.Unlock()
}

// SetProgressHub 注入训练进度推送hub
func SetProgressHub(hub *monitoring.ProgressHub) {
	progressHub = hub
}

func currentTrainingConfig() TrainingConfig {
	trainingMu.Lock()
	defer trainingMu.Unlock()
	return trainingConfig
}

// tryBeginTraining 同一时刻只允许一个训练任务
func tryBeginTraining() bool {
	trainingMu.Lock()
	defer trainingMu.Unlock()
	if trainingActive {
		return false
	}
	trainingActive = true
	return true
}

func endTraining() {
	trainingMu.Lock()
	trainingActive = false
	trainingMu.Unlock()
}

// RegisterTrainingHandlers 注册训练相关路由
func RegisterTrainingHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/train", handleTrainTrigger)
	mux.HandleFunc("GET /api/training/history", handleTrainingHistory)
}

// handleTrainTrigger 异步触发一次训练
func handleTrainTrigger(w http.ResponseWriter, r *http.Request) {
	config := currentTrainingConfig()
	if config.DataPath == "" {
		respondError(w, http.StatusServiceUnavailable, "training not configured")
		return
	}
	if !tryBeginTraining() {
		respondError(w, http.StatusConflict, "training already in progress")
		return
	}

	runID := uuid.NewString()
	go func() {
		defer endTraining()
		if err := RunTraining(runID); err != nil {
			logger.Errorw("training run failed", "run_id", runID, "error", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"run_id": runID,
	})
}

func broadcastTraining(event monitoring.TrainingEvent) {
	if progressHub != nil {
		progressHub.BroadcastEvent(event)
	}
}

// RunTraining 同步执行完整训练流程：加载CSV、训练、落盘、切换模型
func RunTraining(runID string) error {
	config := currentTrainingConfig()
	if config.DataPath == "" {
		return errors.New("training not configured")
	}
	if config.ModelPath == "" {
		return errors.New("model path not configured")
	}
	start := time.Now()
	logger.Infow("training started",
		"run_id", runID,
		"data", config.DataPath,
		"model_type", config.ModelType,
	)

	if err := db.StartTrainingRun(db.TrainingRun{RunID: runID, ModelType: config.ModelType}); err != nil {
		logger.Warnw("failed to record training run", "run_id", runID, "error", err)
	}

	records, stats, err := pipeline.LoadCSV(config.DataPath, pipeline.LoaderConfig{Charset: config.Charset})
	if err != nil {
		return failTraining(runID, stats, fmt.Errorf("load training data: %w", err))
	}
	logger.Infow("training data loaded",
		"run_id", runID,
		"rows", stats.TotalRows,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
	)

	progress := func(stage string, completed, total int) {
		logger.Infow("training progress", "run_id", runID, "stage", stage, "step", completed, "total", total)
		broadcastTraining(monitoring.TrainingEvent{
			Type:      monitoring.EventTrainingProgress,
			RunID:     runID,
			Stage:     stage,
			Completed: completed,
			Total:     total,
		})
	}

	result, err := ml.Train(records, ml.TrainerConfig{
		ModelType:       config.ModelType,
		Trees:           config.Trees,
		MaxDepth:        config.MaxDepth,
		MinSamplesSplit: config.MinSamplesSplit,
		LearningRate:    config.LearningRate,
		Iterations:      config.Iterations,
		TestRatio:       config.TestRatio,
		Seed:            config.Seed,
		RunID:           runID,
	}, progress)
	if err != nil {
		return failTraining(runID, stats, fmt.Errorf("train model: %w", err))
	}
	artifact := result.Artifact

	if err := os.MkdirAll(filepath.Dir(config.ModelPath), 0o755); err != nil {
		return failTraining(runID, stats, fmt.Errorf("create model directory: %w", err))
	}
	if err := artifact.Save(config.ModelPath); err != nil {
		return failTraining(runID, stats, fmt.Errorf("save model artifact: %w", err))
	}

	predictor, err := ml.NewPredictor(artifact)
	if err != nil {
		return failTraining(runID, stats, fmt.Errorf("build predictor: %w", err))
	}
	SetPredictor(predictor)

	duration := time.Since(start)
	metrics.TrainingRuns.WithLabelValues("completed").Inc()
	metrics.TrainingDuration.Observe(duration.Seconds())
	metrics.ModelMAE.Set(artifact.MAE)
	metrics.ModelRMSE.Set(artifact.RMSE)

	if err := db.FinishTrainingRun(db.TrainingRun{
		RunID:        runID,
		Status:       db.RunStatusCompleted,
		RowsTotal:    stats.TotalRows,
		RowsUsed:     stats.Loaded,
		RowsSkipped:  stats.Skipped,
		MAE:          artifact.MAE,
		RMSE:         artifact.RMSE,
		AvgPrice:     artifact.AvgPrice,
		ArtifactPath: config.ModelPath,
	}); err != nil {
		logger.Warnw("failed to record training result", "run_id", runID, "error", err)
	}

	broadcastTraining(monitoring.TrainingEvent{
		Type:    monitoring.EventTrainingCompleted,
		RunID:   runID,
		Message: fmt.Sprintf("mae=%.2f rmse=%.2f", artifact.MAE, artifact.RMSE),
	})
	logger.Infow("training completed",
		"run_id", runID,
		"duration", duration,
		"rows_used", result.TrainRows+result.TestRows,
		"mae", artifact.MAE,
		"rmse", artifact.RMSE,
	)
	return nil
}

// failTraining 记录失败状态并广播
func failTraining(runID string, stats pipeline.LoadStats, err error) error {
	metrics.TrainingRuns.WithLabelValues("failed").Inc()
	if dbErr := db.FinishTrainingRun(db.TrainingRun{
		RunID:       runID,
		Status:      db.RunStatusFailed,
		RowsTotal:   stats.TotalRows,
		RowsUsed:    stats.Loaded,
		RowsSkipped: stats.Skipped,
		Error:       err.Error(),
	}); dbErr != nil {
		logger.Warnw("failed to record training failure", "run_id", runID, "error", dbErr)
	}
	broadcastTraining(monitoring.TrainingEvent{
		Type:    monitoring.EventTrainingFailed,
		RunID:   runID,
		Message: err.Error(),
	})
	logger.Errorw("training failed", "run_id", runID, "error", err)
	return err
}

// handleTrainingHistory 查询历史训练记录
func handleTrainingHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 200 {
		limit = 200
	}

	runs, err := db.TrainingHistory(limit)
	if err != nil {
		logger.Errorw("failed to query training history", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to query training history")
		return
	}
	if runs == nil {
		runs = []db.TrainingRun{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  len(runs),
		"runs":   runs,
	})
}

// StartTrainingScheduler 按cron表达式定时重训，schedule为空时关闭
func StartTrainingScheduler(schedule string) error {
	if schedule == "" {
		logger.Infow("training scheduler disabled")
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("parse training schedule: %w", err)
	}

	go func() {
		for {
			next := sched.Next(time.Now())
			time.Sleep(time.Until(next))
			if !tryBeginTraining() {
				logger.Warnw("scheduled training skipped, another run is active")
				continue
			}
			runID := uuid.NewString()
			if err := RunTraining(runID); err != nil {
				logger.Errorw("scheduled training failed", "run_id", runID, "error", err)
			}
			endTraining()
		}
	}()
	logger.Infow("training scheduler started", "schedule", schedule)
	return nil
}
