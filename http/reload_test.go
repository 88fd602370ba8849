package http

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flightprice/ml"
)

func saveTestArtifact(t *testing.T, path string) {
	t.Helper()
	result, err := ml.Train(testFlights(), ml.TrainerConfig{
		ModelType: ml.ModelTypeForest,
		Trees:     2,
		MaxDepth:  4,
		Seed:      3,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := result.Artifact.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func waitForPredictor(timeout time.Duration) *ml.Predictor {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p := currentPredictor(); p != nil {
			return p
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

func TestWatchArtifactReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	stop, err := WatchArtifact(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	SetPredictor(nil)
	defer SetPredictor(nil)

	saveTestArtifact(t, path)

	if waitForPredictor(3*time.Second) == nil {
		t.Fatal("model not hot reloaded after artifact write")
	}
}

func TestWatchArtifactKeepsOldModelOnCorruptWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	stop, err := WatchArtifact(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	SetPredictor(nil)
	defer SetPredictor(nil)

	saveTestArtifact(t, path)
	old := waitForPredictor(3 * time.Second)
	if old == nil {
		t.Fatal("model not hot reloaded after artifact write")
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 等去抖窗口过去
	time.Sleep(1 * time.Second)

	if currentPredictor() != old {
		t.Error("corrupt artifact replaced the active model")
	}
}
