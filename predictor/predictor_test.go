package predictor

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, weight, bias float64) string {
	t.Helper()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(weight))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(bias))
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, buf[:], 0o644))
	return path
}

func TestLoadRejectsWrongSizedArtifact(t *testing.T) {
	p := NewLinear()
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	_, err := p.Load(path)
	assert.Error(t, err)
}

func TestPredictThresholdsAtHalf(t *testing.T) {
	p := NewLinear()
	// weight=1, bias=0: logit=input, sigmoid(0)=0.5 -> class 1 at input=0.
	path := writeArtifact(t, 1, 0)
	artifact, err := p.Load(path)
	require.NoError(t, err)

	class, err := p.Predict(artifact, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), class, "large positive logit should classify as 1")

	class, err = p.Predict(artifact, -10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), class, "large negative logit should classify as 0")
}

func TestPredictRejectsCorruptArtifact(t *testing.T) {
	p := NewLinear()
	_, err := p.Predict([]byte{1, 2, 3}, 0)
	assert.Error(t, err)
}
