package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        airline TEXT NOT NULL,
        source_city TEXT NOT NULL,
        destination_city TEXT NOT NULL,
        cabin_class TEXT NOT NULL,
        stops INTEGER DEFAULT 0,
        days_left INTEGER DEFAULT 0,
        predicted_price REAL NOT NULL,
        model_type TEXT,
        cache_hit INTEGER DEFAULT 0
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        model_type TEXT,
        status TEXT NOT NULL,
        started_at DATETIME NOT NULL,
        finished_at DATETIME,
        rows_total INTEGER DEFAULT 0,
        rows_used INTEGER DEFAULT 0,
        rows_skipped INTEGER DEFAULT 0,
        mae REAL DEFAULT 0,
        rmse REAL DEFAULT 0,
        avg_price REAL DEFAULT 0,
        artifact_path TEXT,
        error TEXT,
        UNIQUE(run_id)
    );
    CREATE INDEX IF NOT EXISTS idx_training_runs_started_at ON training_runs(started_at);
    `

	_, err = database.Exec(query)
	return err
}

// PredictionRecord is one served prediction, kept for the recent-activity API.
type PredictionRecord struct {
	CreatedAt       time.Time `json:"created_at"`
	Airline         string    `json:"airline"`
	SourceCity      string    `json:"source_city"`
	DestinationCity string    `json:"destination_city"`
	CabinClass      string    `json:"cabin_class"`
	Stops           int       `json:"stops"`
	DaysLeft        int       `json:"days_left"`
	PredictedPrice  float64   `json:"predicted_price"`
	ModelType       string    `json:"model_type"`
	CacheHit        bool      `json:"cache_hit"`
}

// SavePrediction appends one prediction row.
func SavePrediction(record PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO predictions (
            created_at, airline, source_city, destination_city, cabin_class,
            stops, days_left, predicted_price, model_type, cache_hit
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		record.CreatedAt,
		record.Airline,
		record.SourceCity,
		record.DestinationCity,
		record.CabinClass,
		record.Stops,
		record.DaysLeft,
		record.PredictedPrice,
		record.ModelType,
		record.CacheHit,
	)
	return err
}

// RecentPredictions returns the newest rows first.
func RecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.Query(`
        SELECT created_at, airline, source_city, destination_city, cabin_class,
               stops, days_left, predicted_price, model_type, cache_hit
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var record PredictionRecord
		if err := rows.Scan(
			&record.CreatedAt,
			&record.Airline,
			&record.SourceCity,
			&record.DestinationCity,
			&record.CabinClass,
			&record.Stops,
			&record.DaysLeft,
			&record.PredictedPrice,
			&record.ModelType,
			&record.CacheHit,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// TrainingRun tracks one training run from start to finish.
type TrainingRun struct {
	RunID        string     `json:"run_id"`
	ModelType    string     `json:"model_type"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	RowsTotal    int        `json:"rows_total"`
	RowsUsed     int        `json:"rows_used"`
	RowsSkipped  int        `json:"rows_skipped"`
	MAE          float64    `json:"mae"`
	RMSE         float64    `json:"rmse"`
	AvgPrice     float64    `json:"avg_price"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StartTrainingRun records a run in the running state.
func StartTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if run.RunID == "" {
		return errors.New("run_id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	_, err := database.Exec(`
        INSERT INTO training_runs (run_id, model_type, status, started_at)
        VALUES (?, ?, ?, ?)
    `, run.RunID, run.ModelType, run.Status, run.StartedAt)
	return err
}

// FinishTrainingRun fills in the outcome of a previously started run.
func FinishTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if run.RunID == "" {
		return errors.New("run_id required")
	}
	finishedAt := time.Now().UTC()
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}
	_, err := database.Exec(`
        UPDATE training_runs
        SET status = ?, finished_at = ?, rows_total = ?, rows_used = ?, rows_skipped = ?,
            mae = ?, rmse = ?, avg_price = ?, artifact_path = ?, error = ?
        WHERE run_id = ?
    `,
		run.Status,
		finishedAt,
		run.RowsTotal,
		run.RowsUsed,
		run.RowsSkipped,
		run.MAE,
		run.RMSE,
		run.AvgPrice,
		run.ArtifactPath,
		run.Error,
		run.RunID,
	)
	return err
}

// TrainingHistory returns the newest runs first.
func TrainingHistory(limit int) ([]TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.Query(`
        SELECT run_id, model_type, status, started_at, finished_at,
               rows_total, rows_used, rows_skipped, mae, rmse, avg_price,
               artifact_path, error
        FROM training_runs
        ORDER BY started_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var modelType, artifactPath, errMsg sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(
			&run.RunID,
			&modelType,
			&run.Status,
			&run.StartedAt,
			&finishedAt,
			&run.RowsTotal,
			&run.RowsUsed,
			&run.RowsSkipped,
			&run.MAE,
			&run.RMSE,
			&run.AvgPrice,
			&artifactPath,
			&errMsg,
		); err != nil {
			return nil, err
		}
		run.ModelType = modelType.String
		run.ArtifactPath = artifactPath.String
		run.Error = errMsg.String
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
