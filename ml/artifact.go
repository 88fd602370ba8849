package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CurrentSchemaVersion is stamped into every artifact written by this build.
// Load rejects artifacts from a newer schema.
const CurrentSchemaVersion = 1

// ModelArtifact is the serialized form of a trained model: the fitted
// parameters, the category maps the encoder used during training, and the
// evaluation summary. One artifact is self-contained for inference.
type ModelArtifact struct {
	SchemaVersion int       `json:"schema_version"`
	ModelType     string    `json:"model_type"`
	TrainedAt     time.Time `json:"trained_at"`
	RunID         string    `json:"run_id,omitempty"`

	FeatureNames []string `json:"feature_names"`

	// Linear model parameters.
	Weights []float64 `json:"weights,omitempty"`
	Bias    float64   `json:"bias,omitempty"`
	MeanX   []float64 `json:"mean_x,omitempty"`
	StdX    []float64 `json:"std_x,omitempty"`

	// Forest model parameters.
	Trees []DecisionTree `json:"trees,omitempty"`

	AirlineMap *CategoryMap `json:"airline_map"`
	SourceMap  *CategoryMap `json:"source_map"`
	DestMap    *CategoryMap `json:"dest_map"`
	ClassMap   *CategoryMap `json:"class_map"`

	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	AvgPrice float64 `json:"avg_price"`
}

// Model rebuilds the Regressor the artifact describes.
func (a *ModelArtifact) Model() (Regressor, error) {
	switch a.ModelType {
	case ModelTypeLinear:
		return &LinearRegression{
			Weights: a.Weights,
			Bias:    a.Bias,
			MeanX:   a.MeanX,
			StdX:    a.StdX,
		}, nil
	case ModelTypeForest:
		return &RandomForest{Trees: a.Trees}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", a.ModelType)
	}
}

// Encoder rebuilds a frozen FeatureEncoder from the stored category maps.
func (a *ModelArtifact) Encoder() *FeatureEncoder {
	return &FeatureEncoder{
		Airlines:     a.AirlineMap,
		Sources:      a.SourceMap,
		Destinations: a.DestMap,
		Classes:      a.ClassMap,
	}
}

func (a *ModelArtifact) validate() error {
	if a.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("artifact schema version %d is newer than supported version %d", a.SchemaVersion, CurrentSchemaVersion)
	}
	if a.AirlineMap == nil || a.SourceMap == nil || a.DestMap == nil || a.ClassMap == nil {
		return fmt.Errorf("artifact is missing category maps")
	}
	switch a.ModelType {
	case ModelTypeLinear:
		if len(a.Weights) != len(a.FeatureNames) {
			return fmt.Errorf("artifact has %d weights for %d features", len(a.Weights), len(a.FeatureNames))
		}
		if len(a.MeanX) != len(a.Weights) || len(a.StdX) != len(a.Weights) {
			return fmt.Errorf("artifact standardization stats do not match weight count")
		}
	case ModelTypeForest:
		if len(a.Trees) == 0 {
			return fmt.Errorf("artifact contains no trees")
		}
	default:
		return fmt.Errorf("unsupported model type %q", a.ModelType)
	}
	return nil
}

// Save writes the artifact as JSON. Callers create the directory.
func (a *ModelArtifact) Save(path string) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadArtifact reads and validates an artifact written by Save.
func LoadArtifact(path string) (*ModelArtifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	return &artifact, nil
}
