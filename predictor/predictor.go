// Package predictor implements the external inference collaborator
// CREATE MODEL/Predict() route to, per spec 4.6. A model's artifact is
// whatever bytes Load returns; Predictor.Predict treats those bytes as
// opaque beyond its own format.
package predictor

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Predictor loads a model artifact from disk and evaluates it against
// a single scalar input, returning an Int8-typed class label.
type Predictor interface {
	Load(path string) ([]byte, error)
	Predict(artifact []byte, input float64) (int64, error)
}

// LinearPredictor is a reference implementation: a single-feature
// logistic regression, artifact = 8-byte big-endian float64 weight
// followed by an 8-byte big-endian float64 bias. It is grounded on the
// forward pass in original_source's inference routine, stripped of
// training and of the hidden layers the original network supports —
// this module only ever needs to score one engineered feature per
// Predict() call, per spec 4.6's single-argument Predict signature.
type LinearPredictor struct{}

// NewLinear returns a LinearPredictor.
func NewLinear() *LinearPredictor { return &LinearPredictor{} }

func (p *LinearPredictor) Load(path string) ([]byte, error) {
	artifact, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("predictor: loading %q: %w", path, err)
	}
	if len(artifact) != 16 {
		return nil, fmt.Errorf("predictor: %q is not a valid model artifact (want 16 bytes, got %d)", path, len(artifact))
	}
	return artifact, nil
}

func (p *LinearPredictor) Predict(artifact []byte, input float64) (int64, error) {
	if len(artifact) != 16 {
		return 0, fmt.Errorf("predictor: corrupt model artifact (want 16 bytes, got %d)", len(artifact))
	}
	weight := math.Float64frombits(binary.BigEndian.Uint64(artifact[0:8]))
	bias := math.Float64frombits(binary.BigEndian.Uint64(artifact[8:16]))
	logit := weight*input + bias
	sigmoid := 1 / (1 + math.Exp(-logit))
	if sigmoid >= 0.5 {
		return 1, nil
	}
	return 0, nil
}
