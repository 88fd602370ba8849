package ml

import "fmt"

// CategoryMissError reports an input value that was never seen during
// training, so no category code exists for it.
type CategoryMissError struct {
	Field string
	Value string
}

func (e *CategoryMissError) Error() string {
	return fmt.Sprintf("unknown category: %s=%q", e.Field, e.Value)
}

// Predictor serves predictions from a loaded artifact. It encodes requests
// with the frozen training-time category maps, rejects categories the model
// never saw, and clamps outputs to be non-negative.
type Predictor struct {
	artifact *ModelArtifact
	encoder  *FeatureEncoder
	model    Regressor
}

func NewPredictor(artifact *ModelArtifact) (*Predictor, error) {
	model, err := artifact.Model()
	if err != nil {
		return nil, err
	}
	return &Predictor{
		artifact: artifact,
		encoder:  artifact.Encoder(),
		model:    model,
	}, nil
}

func (p *Predictor) Predict(record FlightRecord) (float64, error) {
	vector := p.encoder.Encode(record, false)
	if vector[idxAirline] == SentinelCode {
		return 0, &CategoryMissError{Field: "airline", Value: record.Airline}
	}
	if vector[idxSource] == SentinelCode {
		return 0, &CategoryMissError{Field: "source_city", Value: record.SourceCity}
	}
	if vector[idxDestination] == SentinelCode {
		return 0, &CategoryMissError{Field: "destination_city", Value: record.DestinationCity}
	}
	if vector[idxClass] == SentinelCode {
		return 0, &CategoryMissError{Field: "class", Value: record.Class}
	}

	price, err := p.model.Predict(vector)
	if err != nil {
		return 0, err
	}
	if price < 0 {
		price = 0
	}
	return price, nil
}

func (p *Predictor) Artifact() *ModelArtifact {
	return p.artifact
}
