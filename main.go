package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"flightprice/db"
	qhttp "flightprice/http"
	"flightprice/logging"
	"flightprice/metrics"
	"flightprice/ml"
	"flightprice/monitoring"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		MaxConnections int      `yaml:"max_connections"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log   logging.Config `yaml:"log"`
	Model struct {
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"model"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Training struct {
		Data            string  `yaml:"data"`
		Charset         string  `yaml:"charset"`
		ModelType       string  `yaml:"model_type"`
		Trees           int     `yaml:"trees"`
		MaxDepth        int     `yaml:"max_depth"`
		MinSamplesSplit int     `yaml:"min_samples_split"`
		LearningRate    float64 `yaml:"learning_rate"`
		Iterations      int     `yaml:"iterations"`
		TestRatio       float64 `yaml:"test_ratio"`
		Seed            int64   `yaml:"seed"`
		Schedule        string  `yaml:"schedule"`
		TrainAtBoot     bool    `yaml:"train_at_boot"`
	} `yaml:"training"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	// 1. Load config
	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	qhttp.SetLogger(logger)

	// 3. Register metrics
	metrics.Register()

	// 4. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	logger.Infow("database initialized", "path", config.Database.Path)

	// 5. Start training progress hub
	hub := monitoring.NewProgressHub(logger)
	go hub.Start()
	qhttp.SetProgressHub(hub)

	// 6. Configure training and prediction cache
	qhttp.SetTrainingConfig(qhttp.TrainingConfig{
		DataPath:        config.Training.Data,
		Charset:         config.Training.Charset,
		ModelType:       config.Training.ModelType,
		ModelPath:       config.Model.Path,
		Trees:           config.Training.Trees,
		MaxDepth:        config.Training.MaxDepth,
		MinSamplesSplit: config.Training.MinSamplesSplit,
		LearningRate:    config.Training.LearningRate,
		Iterations:      config.Training.Iterations,
		TestRatio:       config.Training.TestRatio,
		Seed:            config.Training.Seed,
	})
	if err := qhttp.InitPredictCache(config.Cache.Size); err != nil {
		logger.Fatalf("Failed to initialize prediction cache: %v", err)
	}

	// 7. Load the model, training at boot if configured. A broken or missing
	// artifact is fatal, the service never starts without a working model.
	if err := loadModel(config, logger); err != nil {
		logger.Fatalf("Failed to load model from %s: %v", config.Model.Path, err)
	}

	// 8. Start the retraining scheduler
	if err := qhttp.StartTrainingScheduler(config.Training.Schedule); err != nil {
		logger.Fatalf("Failed to start training scheduler: %v", err)
	}

	// 9. Watch the artifact for hot reload
	if config.Model.Watch {
		stop, err := qhttp.WatchArtifact(config.Model.Path)
		if err != nil {
			logger.Warnw("artifact watch disabled", "error", err)
		} else {
			defer stop()
		}
	}

	// 10. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           config.Server.Port,
		Timeout:        time.Duration(config.Server.TimeoutSeconds) * time.Second,
		MaxConnections: config.Server.MaxConnections,
		AllowedOrigins: config.Server.AllowedOrigins,
	})
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 11. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infow("shutting down")

	if err := server.Stop(); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	hub.Stop()

	logger.Infow("exiting")
}

// loadModel loads the saved artifact, falling back to a boot-time training
// run when none exists and train_at_boot is set.
func loadModel(config *Config, logger *zap.SugaredLogger) error {
	artifact, err := ml.LoadArtifact(config.Model.Path)
	if err != nil {
		if config.Training.TrainAtBoot && config.Training.Data != "" {
			logger.Infow("no model artifact found, training at boot", "data", config.Training.Data)
			return qhttp.RunTraining(uuid.NewString())
		}
		return err
	}

	predictor, err := ml.NewPredictor(artifact)
	if err != nil {
		return err
	}
	qhttp.SetPredictor(predictor)
	metrics.ModelMAE.Set(artifact.MAE)
	metrics.ModelRMSE.Set(artifact.RMSE)
	return nil
}

func loadConfig(path string) (*Config, error) {
	var config Config
	config.Server.Port = 8080
	config.Server.TimeoutSeconds = 30
	config.Server.MaxConnections = 100
	config.Server.AllowedOrigins = []string{"*"}
	config.Database.Path = "./data/flightprice.db"
	config.Model.Path = "./models/price_model.json"
	config.Cache.Size = 1024
	config.Training.ModelType = ml.ModelTypeForest
	config.Training.TestRatio = 0.2

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
